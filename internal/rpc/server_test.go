package rpc

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/IanTeda/personal-ledger-backend/internal/log"
	"github.com/IanTeda/personal-ledger-backend/internal/services"
	"github.com/IanTeda/personal-ledger-backend/internal/storage"
)

type testServer struct {
	server *Server
	conn   *grpc.ClientConn
	client *Client
}

// startServer runs the full stack over an in-memory listener backed by a
// SQLite store in a temp dir.
func startServer(t *testing.T, opts Options, clientToken string) *testServer {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"), storage.Options{PageSize: 10})
	require.NoError(t, err)
	svc := services.NewCategoryService(repo, nil)
	t.Cleanup(func() { _ = svc.Close() })

	if opts.Logger == nil {
		opts.Logger = log.New(log.Config{Level: log.LevelOff, Output: &bytes.Buffer{}})
	}
	srv := NewServer(svc, opts)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testServer{server: srv, conn: conn, client: NewClient(conn, clientToken)}
}

func requireCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, status.Code(err), "error: %v", err)
}

func strp(s string) *string { return &s }

func TestCategoryScenario(t *testing.T) {
	ts := startServer(t, Options{}, "")
	ctx := context.Background()
	c := ts.client

	created, err := c.CategoryCreate(ctx, &CategoryCreateRequest{Code: "SAL", Name: "Salary", CategoryType: "income"})
	require.NoError(t, err)
	first := created.Category
	assert.True(t, first.IsActive)
	assert.True(t, first.CreatedOn.Equal(first.UpdatedOn))

	_, err = c.CategoryCreate(ctx, &CategoryCreateRequest{Code: "sal", Name: "Salary 2", CategoryType: "income"})
	requireCode(t, err, codes.InvalidArgument)
	assert.Contains(t, status.Convert(err).Message(), "code")

	updated, err := c.CategoryUpdate(ctx, &CategoryUpdateRequest{
		ID:         first.ID,
		Category:   CategoryFields{Name: strp("Salary 2")},
		UpdateMask: []string{"name"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Salary 2", updated.Category.Name)
	assert.True(t, updated.Category.UpdatedOn.After(first.UpdatedOn))

	byCode, err := c.CategoryGetByCode(ctx, &CategoryGetByCodeRequest{Code: "SAL"})
	require.NoError(t, err)
	assert.Equal(t, updated.Category, byCode.Category)

	d1, err := c.CategoryDeactivate(ctx, &CategoryDeactivateRequest{ID: first.ID})
	require.NoError(t, err)
	assert.False(t, d1.Category.IsActive)
	d2, err := c.CategoryDeactivate(ctx, &CategoryDeactivateRequest{ID: first.ID})
	require.NoError(t, err)
	assert.Equal(t, d1.Category, d2.Category)
}

func TestCategoryGetVariants(t *testing.T) {
	ts := startServer(t, Options{}, "")
	ctx := context.Background()
	c := ts.client

	created, err := c.CategoryCreate(ctx, &CategoryCreateRequest{
		Code:         "FOOD",
		Name:         "Food",
		URLSlug:      strp("food"),
		Color:        strp("#a0b0c0"),
		CategoryType: "expense",
	})
	require.NoError(t, err)
	assert.Equal(t, "#A0B0C0", *created.Category.Color)

	byID, err := c.CategoryGet(ctx, &CategoryGetRequest{ID: created.Category.ID})
	require.NoError(t, err)
	assert.Equal(t, created.Category, byID.Category)

	bySlug, err := c.CategoryGetBySlug(ctx, &CategoryGetBySlugRequest{URLSlug: "food"})
	require.NoError(t, err)
	assert.Equal(t, created.Category.ID, bySlug.Category.ID)

	_, err = c.CategoryGet(ctx, &CategoryGetRequest{ID: "not-a-uuid"})
	requireCode(t, err, codes.InvalidArgument)

	_, err = c.CategoryGetByCode(ctx, &CategoryGetByCodeRequest{Code: "NOPE"})
	requireCode(t, err, codes.NotFound)
	assert.Equal(t, `category with code "NOPE" not found`, status.Convert(err).Message())

	_, err = c.CategoryDeactivate(ctx, &CategoryDeactivateRequest{ID: created.Category.ID})
	require.NoError(t, err)
	_, err = c.CategoryGetBySlug(ctx, &CategoryGetBySlugRequest{URLSlug: "food", OnlyActive: true})
	requireCode(t, err, codes.NotFound)

	activated, err := c.CategoryActivate(ctx, &CategoryActivateRequest{ID: created.Category.ID})
	require.NoError(t, err)
	assert.True(t, activated.Category.IsActive)
}

func TestCategoryUpdateMask(t *testing.T) {
	ts := startServer(t, Options{}, "")
	ctx := context.Background()
	c := ts.client

	created, err := c.CategoryCreate(ctx, &CategoryCreateRequest{
		Code:         "RENT",
		Name:         "Rent",
		Description:  strp("Monthly rent"),
		CategoryType: "expense",
	})
	require.NoError(t, err)
	id := created.Category.ID

	t.Run("unknown field", func(t *testing.T) {
		_, err := c.CategoryUpdate(ctx, &CategoryUpdateRequest{ID: id, UpdateMask: []string{"colour"}})
		requireCode(t, err, codes.InvalidArgument)
		assert.Contains(t, status.Convert(err).Message(), "update_mask")
	})

	t.Run("code is immutable", func(t *testing.T) {
		_, err := c.CategoryUpdate(ctx, &CategoryUpdateRequest{ID: id, Category: CategoryFields{Code: strp("HOME")}, UpdateMask: []string{"code"}})
		requireCode(t, err, codes.InvalidArgument)
		assert.Contains(t, status.Convert(err).Message(), "immutable")
	})

	t.Run("masked optional field without value clears it", func(t *testing.T) {
		res, err := c.CategoryUpdate(ctx, &CategoryUpdateRequest{ID: id, UpdateMask: []string{"description"}})
		require.NoError(t, err)
		assert.Nil(t, res.Category.Description)
	})

	t.Run("empty mask applies present fields", func(t *testing.T) {
		res, err := c.CategoryUpdate(ctx, &CategoryUpdateRequest{ID: id, Category: CategoryFields{Icon: strp("house")}})
		require.NoError(t, err)
		require.NotNil(t, res.Category.Icon)
		assert.Equal(t, "house", *res.Category.Icon)
		assert.Equal(t, "Rent", res.Category.Name)
	})

	t.Run("stale if_updated_on", func(t *testing.T) {
		stale := created.Category.UpdatedOn
		_, err := c.CategoryUpdate(ctx, &CategoryUpdateRequest{ID: id, Category: CategoryFields{Name: strp("Housing")}, IfUpdatedOn: &stale})
		requireCode(t, err, codes.FailedPrecondition)
	})

	t.Run("missing row", func(t *testing.T) {
		_, err := c.CategoryUpdate(ctx, &CategoryUpdateRequest{ID: "0190a0b8-7c1e-7a3b-9f00-000000000001", Category: CategoryFields{Name: strp("X")}})
		requireCode(t, err, codes.NotFound)
	})
}

func TestCategoriesListPaging(t *testing.T) {
	ts := startServer(t, Options{}, "")
	ctx := context.Background()
	c := ts.client

	batch := []CategoryCreateRequest{
		{Code: "A", Name: "A", CategoryType: "expense"},
		{Code: "B", Name: "B", CategoryType: "income"},
		{Code: "C", Name: "C", CategoryType: "expense"},
		{Code: "D", Name: "D", CategoryType: "expense"},
	}
	res, err := c.CategoriesCreateBatch(ctx, &CategoriesCreateBatchRequest{Categories: batch})
	require.NoError(t, err)
	require.Len(t, res.Categories, 4)

	expense := "expense"
	var seen []string
	token := ""
	for {
		page, err := c.CategoriesList(ctx, &CategoriesListRequest{PageSize: 2, PageToken: token, CategoryType: &expense})
		require.NoError(t, err)
		for _, cat := range page.Categories {
			assert.Equal(t, "expense", cat.CategoryType)
			seen = append(seen, cat.Code)
		}
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}
	assert.ElementsMatch(t, []string{"A", "C", "D"}, seen)

	_, err = c.CategoriesList(ctx, &CategoriesListRequest{PageSize: 5000})
	requireCode(t, err, codes.InvalidArgument)

	_, err = c.CategoriesList(ctx, &CategoriesListRequest{PageToken: "garbage!"})
	requireCode(t, err, codes.InvalidArgument)
}

func TestCategoriesCreateBatchValidation(t *testing.T) {
	ts := startServer(t, Options{}, "")
	ctx := context.Background()

	_, err := ts.client.CategoriesCreateBatch(ctx, &CategoriesCreateBatchRequest{})
	requireCode(t, err, codes.InvalidArgument)

	_, err = ts.client.CategoriesCreateBatch(ctx, &CategoriesCreateBatchRequest{Categories: []CategoryCreateRequest{
		{Code: "OK", Name: "Ok", CategoryType: "asset"},
		{Code: "BAD", Name: "Bad", CategoryType: "Asset"},
	}})
	requireCode(t, err, codes.InvalidArgument)
	assert.Contains(t, status.Convert(err).Message(), "categories[1].category_type")

	list, err := ts.client.CategoriesList(ctx, &CategoriesListRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Categories)
}

func TestPingAndHealth(t *testing.T) {
	ts := startServer(t, Options{}, "")
	ctx := context.Background()

	msg, err := ts.client.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, PongMessage, msg)

	st, err := ts.client.Health(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st)

	require.NoError(t, ts.server.MarkServing(ctx))
	st, err = ts.client.Health(ctx, CategoriesServiceName)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st)

	assert.GreaterOrEqual(t, ts.server.Metrics().TotalRequests, int64(1))
}

func TestAuthToken(t *testing.T) {
	ts := startServer(t, Options{AuthToken: "s3cret"}, "")
	ctx := context.Background()

	_, err := ts.client.Ping(ctx)
	requireCode(t, err, codes.Unauthenticated)

	_, err = NewClient(ts.conn, "wrong").Ping(ctx)
	requireCode(t, err, codes.Unauthenticated)

	msg, err := NewClient(ts.conn, "s3cret").Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, PongMessage, msg)

	_, err = ts.client.Health(ctx, "")
	require.NoError(t, err, "health stays reachable without credentials")
}

func TestRateLimit(t *testing.T) {
	ts := startServer(t, Options{RequestsPerMinute: 2}, "")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := ts.client.Ping(ctx)
		require.NoError(t, err)
	}
	_, err := ts.client.Ping(ctx)
	requireCode(t, err, codes.ResourceExhausted)
}
