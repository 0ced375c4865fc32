package main

import (
	"time"

	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/model"
)

const (
	demoEmail    = "demo@meit.app"
	demoPassword = "demo1234"
)

// seedDemo fills the memory gateway with one account, a profile, two
// joined locations and one that can still be registered by scanning
// meit://business/3.
func seedDemo(m *gateway.Memory) error {
	identity, err := m.AddAccount(demoEmail, demoPassword)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	cust := m.AddCustomer(model.Customer{
		IdentityID:     identity,
		Email:          demoEmail,
		Name:           "Demo",
		TotalPoints:    140,
		LifetimePoints: 210,
		VisitsCount:    7,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	})

	addr := "Av. Reforma 120"
	m.AddLocation(model.Location{ID: 1, Name: "Café Central", Category: "Cafetería", Address: &addr}, 100)
	m.AddLocation(model.Location{ID: 2, Name: "Panadería Sol", Category: "Panadería"}, 101)
	m.AddLocation(model.Location{ID: 3, Name: "Tacos Don Beto", Category: "Restaurante"}, 102)

	m.AddRelation(model.Relation{CustomerID: cust.ID, MerchantID: 100, LocationID: 1,
		AvailablePoints: 100, LifetimePoints: 150, VisitsCount: 5, IsFavorite: true, IsActive: true,
		FirstVisitAt: &now, LastVisitAt: &now, CreatedAt: now, UpdatedAt: now})
	m.AddRelation(model.Relation{CustomerID: cust.ID, MerchantID: 101, LocationID: 2,
		AvailablePoints: 40, LifetimePoints: 60, VisitsCount: 2, IsActive: true,
		FirstVisitAt: &now, LastVisitAt: &now, CreatedAt: now, UpdatedAt: now})

	m.AddPointsTransaction(cust.ID, model.PointsTransaction{MerchantID: 100, BrandName: "Café Central", PointsAssigned: 50, CreatedAt: now.Add(-48 * time.Hour)})
	m.AddPointsTransaction(cust.ID, model.PointsTransaction{MerchantID: 101, BrandName: "Panadería Sol", PointsAssigned: 60, CreatedAt: now.Add(-24 * time.Hour)})

	m.AddGiftCard(model.GiftCard{ID: "gc-1", CustomerID: cust.ID, LocationID: 1, BrandName: "Café Central",
		Code: "CAFE-0001", Value: 100, PointsUsed: 100, Status: model.GiftCardActive,
		ExpiresAt: now.Add(3 * 24 * time.Hour), CreatedAt: now})

	end := now.Add(14 * 24 * time.Hour)
	m.AddChallenge(model.Challenge{ID: "ch-1", LocationID: 1, BrandName: "Café Central", Category: "Cafetería",
		Title: "5 visitas", Description: "Visítanos 5 veces este mes", RewardPoints: 50,
		ChallengeType: "visits", TargetValue: 5, EndDate: &end, IsActive: true})

	m.InsertNotification(model.Notification{LocationID: 1, CustomerID: cust.ID, Type: model.NotificationPointsAssigned,
		Title: "Puntos asignados", Message: "Recibiste 50 puntos en Café Central",
		Metadata: map[string]any{"points": 50}, CreatedAt: now.Add(-48 * time.Hour)})
	return nil
}
