package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/clock"
	"chatrelay/internal/config"
	"chatrelay/internal/model"
)

func TestMain(m *testing.M) {
	// プロジェクトルートの.envを読み込み
	_ = godotenv.Load("../../.env")
	os.Exit(m.Run())
}

// setupTestDB テスト用データベース接続をセットアップ
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	if os.Getenv("DB_HOST") == "" {
		t.Skip("Skipping: DB_HOST not set")
	}
	cfg, err := config.Load()
	require.NoError(t, err)

	testDB, err := Init(cfg)
	if err != nil {
		t.Skipf("Skipping: could not connect to test database: %v", err)
	}
	require.NoError(t, Migrate(testDB))

	// テストデータをクリア
	testDB.Exec("DELETE FROM participants")
	testDB.Exec("DELETE FROM messages")

	t.Cleanup(func() {
		testDB.Exec("DELETE FROM participants")
		testDB.Exec("DELETE FROM messages")
		testDB.Close()
	})
	return testDB
}

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func TestDSN(t *testing.T) {
	dsn := DSN(config.Config{DBUser: "chat", DBPassword: "pw", DBHost: "db", DBPort: "3307", DBName: "relay"})
	mc, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "db:3307", mc.Addr)
	require.Equal(t, "relay", mc.DBName)
	require.True(t, mc.ParseTime)
	require.True(t, mc.ClientFoundRows)
}

func TestParticipantRepository(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	clk := clock.NewManual(epoch)
	r := NewParticipantRepository(setupTestDB(t), clk)

	_, err := r.Register(ctx, "Bob")
	req.NoError(err)
	_, err = r.Register(ctx, "Bob")
	req.ErrorIs(err, model.ErrConflict)

	clk.Advance(6 * time.Second)
	_, err = r.Register(ctx, "Alice")
	req.NoError(err)
	clk.Advance(5 * time.Second)
	req.NoError(r.Heartbeat(ctx, "Alice"))
	req.NoError(r.Heartbeat(ctx, "Alice"))
	req.ErrorIs(r.Heartbeat(ctx, "Ghost"), model.ErrNotFound)

	evicted, err := r.EvictStaleBefore(ctx, clk.Now().Add(-10*time.Second))
	req.NoError(err)
	req.Equal([]string{"Bob"}, lo.Map(evicted, func(p model.Participant, _ int) string { return p.Name }))

	present, err := r.IsPresent(ctx, "Bob")
	req.NoError(err)
	req.False(present)
	req.ErrorIs(r.Heartbeat(ctx, "Bob"), model.ErrNotFound)

	list, err := r.List(ctx)
	req.NoError(err)
	req.Len(list, 1)
	req.Equal("Alice", list[0].Name)
}

func TestMessageRepository(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	r := NewMessageRepository(setupTestDB(t), clock.NewManual(epoch))

	var last model.Message
	for i := 1; i <= 5; i++ {
		msg, err := r.Append(ctx, model.Message{From: "Alice", To: model.BroadcastTarget, Text: fmt.Sprintf("m%d", i), Type: model.TypeBroadcast})
		req.NoError(err)
		last = msg
	}
	_, err := r.Append(ctx, model.Message{From: "Alice", To: "Bob", Text: "secret", Type: model.TypePrivate})
	req.NoError(err)

	carol, err := r.QueryVisible(ctx, "Carol", lo.ToPtr(2))
	req.NoError(err)
	req.Equal([]string{"m4", "m5"}, lo.Map(carol, func(m model.Message, _ int) string { return m.Text }))

	bob, err := r.QueryVisible(ctx, "Bob", nil)
	req.NoError(err)
	req.Len(bob, 6)

	req.ErrorIs(r.DeleteByID(ctx, last.ID, "Bob"), model.ErrUnauthorized)
	req.ErrorIs(r.DeleteByID(ctx, "missing", "Alice"), model.ErrNotFound)
	req.NoError(r.DeleteByID(ctx, last.ID, "Alice"))

	carol, err = r.QueryVisible(ctx, "Carol", nil)
	req.NoError(err)
	req.Equal([]string{"m1", "m2", "m3", "m4"}, lo.Map(carol, func(m model.Message, _ int) string { return m.Text }))
}
