package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/meit-app/meit/internal/model"
)

type pointsResp struct {
	Summary    model.PointsSummary            `json:"summary"`
	Total      int64                          `json:"total_available"`
	ByRelation listResp[model.RelationPoints] `json:"by_relation"`
	History    []model.PointsTransaction      `json:"history"`
}

// Points returns the summary, the per-location balances and the recent
// history.
func (h *ClientHandler) Points(c echo.Context) error {
	cl, _, err := h.customer(c)
	if cl == nil {
		return err
	}
	p := cl.Caches.Points
	st := p.Snapshot()
	history := p.History()
	return c.JSON(http.StatusOK, pointsResp{
		Summary:    p.Summary(),
		Total:      p.TotalAvailable(),
		ByRelation: listOf(st, st.Items),
		History:    history,
	})
}

// giftCardView adds the read-time status next to the stored one.
type giftCardView struct {
	model.GiftCard
	EffectiveStatus model.GiftCardStatus `json:"effective_status"`
}

func giftCardViews(cards []model.GiftCard, now time.Time) []giftCardView {
	out := make([]giftCardView, 0, len(cards))
	for _, g := range cards {
		out = append(out, giftCardView{GiftCard: g, EffectiveStatus: g.EffectiveStatus(now)})
	}
	return out
}

// ListGiftCards returns the caller's cards.  ?location= narrows to one
// location and ?active=true to cards still usable now.
func (h *ClientHandler) ListGiftCards(c echo.Context) error {
	cl, _, err := h.customer(c)
	if cl == nil {
		return err
	}
	g := cl.Caches.GiftCards
	now := h.Now()
	st := g.Snapshot()
	items := st.Items
	switch {
	case c.QueryParam("location") != "":
		loc, err := strconv.ParseInt(c.QueryParam("location"), 10, 64)
		if err != nil {
			return badRequest(c, "invalid location")
		}
		items = g.GetByMerchant(loc)
	case c.QueryParam("active") == "true":
		items = g.Active(now)
	}
	return c.JSON(http.StatusOK, listOf(st, giftCardViews(items, now)))
}

// ExpiringGiftCards returns active cards that expire within a week.
func (h *ClientHandler) ExpiringGiftCards(c echo.Context) error {
	cl, _, err := h.customer(c)
	if cl == nil {
		return err
	}
	g := cl.Caches.GiftCards
	now := h.Now()
	return c.JSON(http.StatusOK, listOf(g.Snapshot(), giftCardViews(g.ExpiringSoon(now), now)))
}

func (h *ClientHandler) GetGiftCard(c echo.Context) error {
	cl, _, err := h.customer(c)
	if cl == nil {
		return err
	}
	card, ok := cl.Caches.GiftCards.GetByID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	}
	return c.JSON(http.StatusOK, giftCardViews([]model.GiftCard{card}, h.Now())[0])
}

// ListChallenges returns the caller's challenges.  ?active=true drops
// inactive and expired ones; ?favorites=true additionally narrows to
// favorite locations.
func (h *ClientHandler) ListChallenges(c echo.Context) error {
	cl, _, err := h.customer(c)
	if cl == nil {
		return err
	}
	ch := cl.Caches.Challenges
	now := h.Now()
	st := ch.Snapshot()
	items := st.Items
	switch {
	case c.QueryParam("favorites") == "true":
		items = ch.ForFavorites(cl.Caches.Merchants.FavoriteLocationIDs(), now)
	case c.QueryParam("active") == "true":
		items = ch.Active(now)
	case c.QueryParam("location") != "":
		loc, err := strconv.ParseInt(c.QueryParam("location"), 10, 64)
		if err != nil {
			return badRequest(c, "invalid location")
		}
		items = ch.GetByMerchant(loc)
	}
	return c.JSON(http.StatusOK, listOf(st, items))
}

func (h *ClientHandler) GetChallenge(c echo.Context) error {
	cl, _, err := h.customer(c)
	if cl == nil {
		return err
	}
	ch, ok := cl.Caches.Challenges.GetByID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	}
	return c.JSON(http.StatusOK, ch)
}
