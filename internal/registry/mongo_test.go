package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/starford/citypages/internal/apperr"
	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/models"
)

var fixedNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func mockRegistry(mt *mtest.T, cat category.Category) *mongoRegistry {
	m := &Mongo{client: mt.Client, db: mt.DB, now: func() time.Time { return fixedNow }}
	return &mongoRegistry{Mongo: m, cat: cat, coll: mt.Coll}
}

func ns(mt *mtest.T) string {
	return mt.DB.Name() + "." + mt.Coll.Name()
}

// emptyFind answers a find with no documents.
func emptyFind(mt *mtest.T) bson.D {
	return mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch)
}

func cityDoc(id, name, slug string, active bool) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "category", Value: "taxi"},
		{Key: "name", Value: name},
		{Key: "slug", Value: slug},
		{Key: "isActive", Value: active},
		{Key: "createdAt", Value: fixedNow},
	}
}

// findFilters returns the filter of every find the client sent.
func findFilters(mt *mtest.T) []bson.Raw {
	var out []bson.Raw
	for _, evt := range mt.GetAllStartedEvents() {
		if evt.CommandName == "find" {
			out = append(out, evt.Command.Lookup("filter").Document())
		}
	}
	return out
}

func TestMongoFindBySlug(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("falls back to case-insensitive name", func(mt *mtest.T) {
		mt.AddMockResponses(
			emptyFind(mt), // new-delhi
			emptyFind(mt), // taxi-service-in-new-delhi
			emptyFind(mt), // name new-delhi
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch,
				cityDoc("c1", "New Delhi", "taxi-service-in-new-delhi", true)),
		)

		got, err := mockRegistry(mt, category.Taxi).FindBySlug(context.Background(), "new-delhi", false)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.ID != "c1" || got.Name != "New Delhi" {
			t.Errorf("got %+v", got)
		}

		filters := findFilters(mt)
		if len(filters) != 4 {
			t.Fatalf("finds = %d, want 4", len(filters))
		}
		if s := filters[1].Lookup("slug").StringValue(); s != "taxi-service-in-new-delhi" {
			t.Errorf("second candidate = %q", s)
		}
		pattern, opts := filters[3].Lookup("name").Regex()
		if pattern != "^new delhi$" || opts != "i" {
			t.Errorf("name filter = /%s/%s", pattern, opts)
		}
		for i, f := range filters {
			if !f.Lookup("isActive").Boolean() {
				t.Errorf("filter %d does not exclude inactive cities: %s", i, f)
			}
		}
	})

	mt.Run("include inactive drops the active filter", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch,
			cityDoc("c2", "Pune", "taxi-service-in-pune", false)))

		got, err := mockRegistry(mt, category.Taxi).FindBySlug(context.Background(), "taxi-service-in-pune", true)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.IsActive {
			t.Error("expected the inactive record")
		}
		filters := findFilters(mt)
		if len(filters) != 1 {
			t.Fatalf("finds = %d, want 1", len(filters))
		}
		if _, err := filters[0].LookupErr("isActive"); err == nil {
			t.Errorf("filter should not mention isActive: %s", filters[0])
		}
	})

	mt.Run("no candidate matches", func(mt *mtest.T) {
		// taxi-service-in-pune resolves to itself plus the name "pune".
		mt.AddMockResponses(emptyFind(mt), emptyFind(mt))

		_, err := mockRegistry(mt, category.Taxi).FindBySlug(context.Background(), "taxi-service-in-pune", false)
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestMongoFindByIDNotFound(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("missing id", func(mt *mtest.T) {
		mt.AddMockResponses(emptyFind(mt))
		_, err := mockRegistry(mt, category.Tour).FindByID(context.Background(), "ghost")
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestMongoListAll(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes records", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch,
			cityDoc("b", "Indore", "taxi-service-in-indore", true),
			cityDoc("a", "Pune", "taxi-service-in-pune", false),
		))
		list, err := mockRegistry(mt, category.Taxi).ListAll(context.Background())
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if got := names(list); len(got) != 2 || got[0] != "Indore" || got[1] != "Pune" {
			t.Errorf("names = %v", got)
		}
		if !list[0].CreatedAt.Equal(fixedNow) {
			t.Errorf("createdAt = %v", list[0].CreatedAt)
		}
	})

	mt.Run("empty collection is an empty slice", func(mt *mtest.T) {
		mt.AddMockResponses(emptyFind(mt))
		list, err := mockRegistry(mt, category.Taxi).ListActive(context.Background())
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if list == nil || len(list) != 0 {
			t.Errorf("list = %#v", list)
		}
		if f := findFilters(mt); len(f) != 1 || !f[0].Lookup("isActive").Boolean() {
			t.Errorf("filters = %v", f)
		}
	})
}

func TestMongoCreate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("assigns identity", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		c := &models.City{Name: "Pune", Slug: "taxi-service-in-pune", Component: "PuneTaxiPage"}
		if err := mockRegistry(mt, category.Taxi).Create(context.Background(), c); err != nil {
			t.Fatalf("create: %v", err)
		}
		if c.ID == "" || c.Category != "taxi" || c.ProvisionState != models.ProvisionPending {
			t.Errorf("city = %+v", c)
		}
		if !c.CreatedAt.Equal(fixedNow) || !c.UpdatedAt.Equal(fixedNow) {
			t.Errorf("timestamps = %v / %v", c.CreatedAt, c.UpdatedAt)
		}
	})

	mt.Run("duplicate key is a conflict", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: taxi-cities index: slug_1",
		}))
		err := mockRegistry(mt, category.Taxi).Create(context.Background(), &models.City{Name: "Pune"})
		if !errors.Is(err, apperr.ErrConflict) {
			t.Fatalf("err = %v, want ErrConflict", err)
		}
	})

	mt.Run("other write errors pass through", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    121,
			Message: "Document failed validation",
		}))
		err := mockRegistry(mt, category.Taxi).Create(context.Background(), &models.City{Name: "Pune"})
		if err == nil || errors.Is(err, apperr.ErrConflict) {
			t.Fatalf("err = %v, want a non-conflict error", err)
		}
	})
}

func TestMongoWritesOnMissingRecord(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("update", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))
		err := mockRegistry(mt, category.Bike).Update(context.Background(), &models.City{ID: "ghost", Name: "Goa"})
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	mt.Run("set provision state", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))
		err := mockRegistry(mt, category.Bike).SetProvisionState(context.Background(), "ghost", models.ProvisionReady)
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		err := mockRegistry(mt, category.Bike).Delete(context.Background(), "ghost")
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	mt.Run("delete existing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		if err := mockRegistry(mt, category.Bike).Delete(context.Background(), "c1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
	})
}
