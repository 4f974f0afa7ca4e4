package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/spendlog/internal/infra/cache"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
)

type cachedUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func TestRedis_Get(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := cache.NewRedis[cachedUser](db, "spendlog:")
	ctx := context.Background()

	mock.ExpectGet("spendlog:k1").SetVal(`{"id":"u1","email":"a@b.c"}`)
	v, ok, err := c.Get(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if v.ID != "u1" || v.Email != "a@b.c" {
		t.Errorf("unexpected value %+v", v)
	}

	mock.ExpectGet("spendlog:k2").SetErr(redis.Nil)
	if _, ok, err := c.Get(ctx, "k2"); ok || err != nil {
		t.Errorf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	mock.ExpectGet("spendlog:k3").SetErr(errors.New("err-redis"))
	if _, _, err := c.Get(ctx, "k3"); err == nil || err.Error() != "err-redis" {
		t.Errorf("expected err-redis, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRedis_SetAndDelete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := cache.NewRedis[cachedUser](db, "spendlog:")
	ctx := context.Background()

	mock.ExpectSet("spendlog:k1", []byte(`{"id":"u1","email":"a@b.c"}`), 5*time.Minute).SetVal("OK")
	if err := c.Set(ctx, "k1", cachedUser{ID: "u1", Email: "a@b.c"}, 5*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	mock.ExpectDel("spendlog:k1").SetVal(1)
	if err := c.Delete(ctx, "k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
