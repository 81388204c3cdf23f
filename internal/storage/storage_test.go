package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/domain"
	"github.com/kapu/cashier-dialog-gen/pkg/errors"
)

func sampleRecord() *domain.DialogueRecord {
	return &domain.DialogueRecord{
		RunID: "run-1",
		Mode:  "turn",
		ClientProfile: domain.Profile{
			Gender:       domain.GenderMale,
			Age:          35,
			AgeGroup:     "adult",
			Personality:  domain.PersonalityPolite,
			Lang:         domain.LangRussian,
			Restrictions: []domain.Restriction{domain.NoMilk},
			ChildQuant:   1,
			CalApprValue: 2200,
			RegLine:      "gender=male age=35 lang=ru",
		},
		Turns: domain.Transcript{
			{Speaker: domain.SpeakerCashier, Text: "Здравствуйте! Чем могу помочь?"},
			{Speaker: domain.SpeakerClient, Text: "Наггетсы и колу."},
		},
		FinalOrder: domain.Order{
			Items:       []domain.OrderItem{{Name: "Chicken McNuggets (320g)", Quantity: 1, Energy: 720}},
			TotalEnergy: 720,
			Allergens:   []string{"Cereal containing gluten"},
		},
		TotalEnergy:     720,
		ValidationFlags: domain.ValidationFlags{CalorieWarning: true},
		CreatedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "meta", "reg_profiles.txt")
	store, err := NewFileStore(filepath.Join(dir, "dialogs"), index, zap.NewNop())
	require.NoError(t, err)

	id, err := store.NextID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	rec := sampleRecord()
	rec.DialogID = id
	require.NoError(t, store.Save(context.Background(), rec))

	assert.FileExists(t, filepath.Join(dir, "dialogs", "dialog-000001.json"))
	loaded, err := store.Load(id)
	require.NoError(t, err)
	assert.Equal(t, rec, loaded)

	data, err := os.ReadFile(index)
	require.NoError(t, err)
	assert.Equal(t, "dialog_id=1 gender=male age=35 lang=ru\n", string(data))

	raw, err := os.ReadFile(store.Path(id))
	require.NoError(t, err)
	for _, field := range []string{`"dialog_id"`, `"client_profile"`, `"turns"`, `"final_order"`, `"allergens_in_order"`, `"validation_flags"`, `"created_at"`} {
		assert.Contains(t, string(raw), field)
	}
}

func TestFileStoreContinuesNumbering(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"dialog-000007.json", "dialog-000003.json", "notes.txt", "dialog-abc.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}

	store, err := NewFileStore(dir, filepath.Join(dir, "index.txt"), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), store.MaxID())

	id, err := store.NextID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(8), id)

	rec := sampleRecord()
	rec.DialogID = 42
	require.NoError(t, store.Save(context.Background(), rec))
	assert.Equal(t, int64(42), store.MaxID())
}

type memorySink struct {
	name string
	err  error

	mu    sync.Mutex
	saved []int64
}

func (m *memorySink) Name() string { return m.name }

func (m *memorySink) Save(_ context.Context, rec *domain.DialogueRecord) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, rec.DialogID)
	return nil
}

type counterSequence struct{ n int64 }

func (c *counterSequence) NextID(context.Context) (int64, error) {
	c.n++
	return c.n, nil
}

func TestWriterFansOut(t *testing.T) {
	a := &memorySink{name: "a"}
	b := &memorySink{name: "b"}
	w := NewWriter(&counterSequence{n: 10}, []Sink{a, b}, zap.NewNop())
	assert.Equal(t, []string{"a", "b"}, w.Sinks())

	rec := sampleRecord()
	id, err := w.Write(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	assert.Equal(t, int64(11), rec.DialogID)
	assert.Equal(t, []int64{11}, a.saved)
	assert.Equal(t, []int64{11}, b.saved)
}

func TestWriterReportsEverySinkFailure(t *testing.T) {
	ok := &memorySink{name: "ok"}
	bad1 := &memorySink{name: "bad1", err: stderrors.New("disk full")}
	bad2 := &memorySink{name: "bad2", err: stderrors.New("connection refused")}
	w := NewWriter(&counterSequence{}, []Sink{bad1, ok, bad2}, nil)

	id, err := w.Write(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Equal(t, int64(1), id)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, []int64{1}, ok.saved, "healthy sinks still get the record")

	var storageErr *errors.StorageError
	assert.True(t, stderrors.As(err, &storageErr))
}

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func TestS3StoreUploadsJSON(t *testing.T) {
	putter := &fakePutter{}
	store := NewS3StoreWithClient(putter, "datasets", "dialogs/", nil)

	rec := sampleRecord()
	rec.DialogID = 5
	require.NoError(t, store.Save(context.Background(), rec))

	require.Len(t, putter.inputs, 1)
	in := putter.inputs[0]
	assert.Equal(t, "datasets", aws.ToString(in.Bucket))
	assert.Equal(t, "dialogs/dialog-000005.json", aws.ToString(in.Key))
	assert.Equal(t, "application/json", aws.ToString(in.ContentType))
	assert.Equal(t, "run-1", in.Metadata["run-id"])
	assert.True(t, strings.Contains(putter.bodies[0], `"dialog_id": 5`))

	putter.err = stderrors.New("access denied")
	err := store.Save(context.Background(), rec)
	var storageErr *errors.StorageError
	require.True(t, stderrors.As(err, &storageErr))
	assert.Equal(t, "s3", storageErr.Sink)
}

// The Redis and Postgres round trips need live servers; they run when
// REDIS_TEST_ADDR or POSTGRES_TEST_DSN is set.

func TestRedisStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	require.NoError(t, client.FlushDB(ctx).Err())
	store := NewRedisStoreFromClient(client, zap.NewNop())
	defer store.Close()

	require.NoError(t, store.EnsureFloor(ctx, 41))
	id, err := store.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	rec := sampleRecord()
	rec.DialogID = id
	require.NoError(t, store.Save(ctx, rec))

	cached, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rec.Turns, cached.Turns)

	counts, err := store.FlagCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["dialogs"])
	assert.Equal(t, int64(1), counts["calorie_warning"])
	assert.Zero(t, counts["hallucination"])

	missing, err := store.Get(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	ctx := context.Background()

	store := NewPostgresStore(db, zap.NewNop())
	defer store.Close()
	require.NoError(t, store.EnsureSchema(ctx))
	_, err = db.ExecContext(ctx, `DELETE FROM dialogues WHERE dialog_id = 7`)
	require.NoError(t, err)

	rec := sampleRecord()
	rec.DialogID = 7
	require.NoError(t, store.Save(ctx, rec))
	require.NoError(t, store.Save(ctx, rec), "duplicate ids are ignored")

	loaded, err := store.Load(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, rec.FinalOrder, loaded.FinalOrder)
	assert.True(t, rec.CreatedAt.Equal(loaded.CreatedAt))
}
