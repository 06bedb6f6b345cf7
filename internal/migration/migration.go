package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/catalog"
	"github.com/avstrong/hotelbooking/internal/deals"
	"github.com/avstrong/hotelbooking/internal/logger"
)

type storage interface {
	BeginTransaction(ctx context.Context, level string) (context.Context, error)
	CommitTransaction(ctx context.Context) (int, error)
	RollbackTransaction(ctx context.Context) error
	ListCities(ctx context.Context) ([]*catalog.City, error)
	SaveCity(ctx context.Context, c *catalog.City) error
	SaveHotel(ctx context.Context, h *catalog.Hotel) error
	SaveRoomType(ctx context.Context, rt *booking.RoomType) error
	SaveRoom(ctx context.Context, r *booking.Room) error
	SaveDeal(ctx context.Context, d *deals.Deal) error
}

type seedHotel struct {
	hotel     catalog.Hotel
	roomTypes []seedRoomType
}

type seedRoomType struct {
	roomType booking.RoomType
	numbers  []string
}

//nolint:exhaustruct
func seedData() (catalog.City, []seedHotel) {
	city := catalog.City{Name: "Lisbon", Country: "Portugal"}

	hotels := []seedHotel{
		{
			hotel: catalog.Hotel{Name: "Reddison Riverside", Address: "Avenida Infante D. Henrique 1", Stars: 4},
			roomTypes: []seedRoomType{
				{
					roomType: booking.RoomType{Name: "Standard", Price: 90, MaxAdults: 2, MaxChildren: 0},
					numbers:  []string{"101", "102", "103"},
				},
				{
					roomType: booking.RoomType{Name: "Lux", Price: 180, MaxAdults: 2, MaxChildren: 2},
					numbers:  []string{"201", "202"},
				},
			},
		},
		{
			hotel: catalog.Hotel{Name: "Alfama Boutique", Address: "Rua dos Remedios 12", Stars: 5},
			roomTypes: []seedRoomType{
				{
					roomType: booking.RoomType{Name: "Suite", Price: 320, MaxAdults: 3, MaxChildren: 2},
					numbers:  []string{"1", "2"},
				},
			},
		},
	}

	return city, hotels
}

// Up seeds a demo catalog into an empty database. A database that already
// has cities is left untouched.
func Up(ctx context.Context, l *logger.Logger, storage storage, now time.Time) (err error) {
	cities, err := storage.ListCities(ctx)
	if err != nil {
		return fmt.Errorf("list cities: %w", err)
	}

	if len(cities) > 0 {
		l.LogInfo("Catalog is not empty, skipping seed migration")

		return nil
	}

	ctx, err = storage.BeginTransaction(ctx, "")
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := storage.RollbackTransaction(ctx); rbErr != nil {
				l.LogErrorf("Could not rollback migration transaction after panic %v", p)
			}

			l.LogInfo("Migration transaction has been roll backed after panic")

			panic(p)
		}

		if err != nil {
			if rbErr := storage.RollbackTransaction(ctx); rbErr != nil {
				l.LogErrorf("Could not rollback migration transaction after error %v", rbErr.Error())
			}

			l.LogInfo("Migration transaction has been roll backed after error")

			return
		}

		affected, cErr := storage.CommitTransaction(ctx)
		if cErr != nil {
			err = fmt.Errorf("commit migration transaction: %w", cErr)

			return
		}

		l.LogInfo("Migration transaction has been committed, %d rows affected", affected)
	}()

	return seed(ctx, storage, now)
}

func seed(ctx context.Context, storage storage, now time.Time) error {
	city, hotels := seedData()

	if err := storage.SaveCity(ctx, &city); err != nil {
		return fmt.Errorf("save city: %w", err)
	}

	for i := range hotels {
		h := hotels[i].hotel
		h.CityID = city.ID

		if err := storage.SaveHotel(ctx, &h); err != nil {
			return fmt.Errorf("save hotel %s: %w", h.Name, err)
		}

		for j := range hotels[i].roomTypes {
			rt := hotels[i].roomTypes[j].roomType
			rt.HotelID = h.ID

			if err := storage.SaveRoomType(ctx, &rt); err != nil {
				return fmt.Errorf("save room type %s: %w", rt.Name, err)
			}

			for _, number := range hotels[i].roomTypes[j].numbers {
				//nolint:exhaustruct
				room := &booking.Room{HotelID: h.ID, RoomTypeID: rt.ID, Number: number}

				if err := storage.SaveRoom(ctx, room); err != nil {
					return fmt.Errorf("save room %s: %w", number, err)
				}
			}
		}

		if i == 0 {
			hotelID := h.ID

			//nolint:exhaustruct
			deal := &deals.Deal{
				HotelID:            &hotelID,
				Title:              "Early spring",
				DiscountPercentage: 10,
				ValidFrom:          now.UTC(),
				ValidTo:            now.UTC().AddDate(0, 3, 0),
				MaxBookings:        50,
				IsActive:           true,
			}

			if err := storage.SaveDeal(ctx, deal); err != nil {
				return fmt.Errorf("save deal: %w", err)
			}
		}
	}

	return nil
}
