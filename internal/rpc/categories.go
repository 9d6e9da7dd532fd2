package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/IanTeda/personal-ledger-backend/internal/core"
	"github.com/IanTeda/personal-ledger-backend/internal/storage"
)

const CategoriesServiceName = "personal_ledger.CategoriesService"

// MaxBatchSize bounds CategoriesCreateBatch.
const MaxBatchSize = core.MaxPageSize

// CategoriesServer is the server API for the categories service.
type CategoriesServer interface {
	CategoryCreate(context.Context, *CategoryCreateRequest) (*CategoryCreateResponse, error)
	CategoriesCreateBatch(context.Context, *CategoriesCreateBatchRequest) (*CategoriesCreateBatchResponse, error)
	CategoryGet(context.Context, *CategoryGetRequest) (*CategoryGetResponse, error)
	CategoryGetByCode(context.Context, *CategoryGetByCodeRequest) (*CategoryGetResponse, error)
	CategoryGetBySlug(context.Context, *CategoryGetBySlugRequest) (*CategoryGetResponse, error)
	CategoriesList(context.Context, *CategoriesListRequest) (*CategoriesListResponse, error)
	CategoryUpdate(context.Context, *CategoryUpdateRequest) (*CategoryUpdateResponse, error)
	CategoryActivate(context.Context, *CategoryActivateRequest) (*CategoryStateResponse, error)
	CategoryDeactivate(context.Context, *CategoryDeactivateRequest) (*CategoryStateResponse, error)
}

// CategoriesServiceDesc describes the categories service for grpc.Server.
var CategoriesServiceDesc = grpc.ServiceDesc{
	ServiceName: CategoriesServiceName,
	HandlerType: (*CategoriesServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(CategoriesServiceName, "CategoryCreate", CategoriesServer.CategoryCreate),
		unaryMethod(CategoriesServiceName, "CategoriesCreateBatch", CategoriesServer.CategoriesCreateBatch),
		unaryMethod(CategoriesServiceName, "CategoryGet", CategoriesServer.CategoryGet),
		unaryMethod(CategoriesServiceName, "CategoryGetByCode", CategoriesServer.CategoryGetByCode),
		unaryMethod(CategoriesServiceName, "CategoryGetBySlug", CategoriesServer.CategoryGetBySlug),
		unaryMethod(CategoriesServiceName, "CategoriesList", CategoriesServer.CategoriesList),
		unaryMethod(CategoriesServiceName, "CategoryUpdate", CategoriesServer.CategoryUpdate),
		unaryMethod(CategoriesServiceName, "CategoryActivate", CategoriesServer.CategoryActivate),
		unaryMethod(CategoriesServiceName, "CategoryDeactivate", CategoriesServer.CategoryDeactivate),
	},
	Streams: []grpc.StreamDesc{},
}

// CategoryService is what the adapter needs from the service layer.
type CategoryService interface {
	Create(ctx context.Context, d core.Draft) (core.Category, error)
	CreateBatch(ctx context.Context, drafts []core.Draft) ([]core.Category, error)
	Get(ctx context.Context, l core.Lookup) (core.Category, error)
	List(ctx context.Context, f core.Filter, page core.Page) (storage.ListResult, error)
	Update(ctx context.Context, id core.RowID, p core.Patch) (core.Category, error)
	Activate(ctx context.Context, id core.RowID) (core.Category, error)
	Deactivate(ctx context.Context, id core.RowID) (core.Category, error)
	Ping(ctx context.Context) error
}

// categoriesHandler converts wire requests through the core constructors and
// hands the typed values to the service. Errors leave as core errors.
type categoriesHandler struct {
	svc CategoryService
}

func (h *categoriesHandler) CategoryCreate(ctx context.Context, in *CategoryCreateRequest) (*CategoryCreateResponse, error) {
	d, err := draftFrom(in)
	if err != nil {
		return nil, err
	}
	c, err := h.svc.Create(ctx, d)
	if err != nil {
		return nil, err
	}
	return &CategoryCreateResponse{Category: toWire(c)}, nil
}

func (h *categoriesHandler) CategoriesCreateBatch(ctx context.Context, in *CategoriesCreateBatchRequest) (*CategoriesCreateBatchResponse, error) {
	switch n := len(in.Categories); {
	case n == 0:
		return nil, core.Invalid("categories", core.RuleRequired, "at least one category")
	case n > MaxBatchSize:
		return nil, core.Invalid("categories", core.RuleRange, fmt.Sprintf("at most %d categories per batch", MaxBatchSize))
	}
	drafts, err := draftsFrom(in.Categories)
	if err != nil {
		return nil, err
	}
	created, err := h.svc.CreateBatch(ctx, drafts)
	if err != nil {
		return nil, err
	}
	return &CategoriesCreateBatchResponse{Categories: toWires(created)}, nil
}

func (h *categoriesHandler) CategoryGet(ctx context.Context, in *CategoryGetRequest) (*CategoryGetResponse, error) {
	id, err := core.ParseRowID(in.ID)
	if err != nil {
		return nil, err
	}
	return h.get(ctx, core.ByID(id), in.OnlyActive)
}

func (h *categoriesHandler) CategoryGetByCode(ctx context.Context, in *CategoryGetByCodeRequest) (*CategoryGetResponse, error) {
	code, err := core.ParseCode(in.Code)
	if err != nil {
		return nil, err
	}
	return h.get(ctx, core.ByCode(code), in.OnlyActive)
}

func (h *categoriesHandler) CategoryGetBySlug(ctx context.Context, in *CategoryGetBySlugRequest) (*CategoryGetResponse, error) {
	slug, err := core.ParseSlug(in.URLSlug)
	if err != nil {
		return nil, err
	}
	return h.get(ctx, core.BySlug(slug), in.OnlyActive)
}

func (h *categoriesHandler) get(ctx context.Context, l core.Lookup, onlyActive bool) (*CategoryGetResponse, error) {
	if onlyActive {
		l = l.ActiveOnly()
	}
	c, err := h.svc.Get(ctx, l)
	if err != nil {
		return nil, err
	}
	return &CategoryGetResponse{Category: toWire(c)}, nil
}

func (h *categoriesHandler) CategoriesList(ctx context.Context, in *CategoriesListRequest) (*CategoriesListResponse, error) {
	f, page, err := filterFrom(in)
	if err != nil {
		return nil, err
	}
	res, err := h.svc.List(ctx, f, page)
	if err != nil {
		return nil, err
	}
	return &CategoriesListResponse{
		Categories:    toWires(res.Items),
		NextPageToken: res.NextCursor,
	}, nil
}

func (h *categoriesHandler) CategoryUpdate(ctx context.Context, in *CategoryUpdateRequest) (*CategoryUpdateResponse, error) {
	id, err := core.ParseRowID(in.ID)
	if err != nil {
		return nil, err
	}
	p, err := patchFrom(in)
	if err != nil {
		return nil, err
	}
	c, err := h.svc.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	return &CategoryUpdateResponse{Category: toWire(c)}, nil
}

func (h *categoriesHandler) CategoryActivate(ctx context.Context, in *CategoryActivateRequest) (*CategoryStateResponse, error) {
	return h.setActive(ctx, in.ID, h.svc.Activate)
}

func (h *categoriesHandler) CategoryDeactivate(ctx context.Context, in *CategoryDeactivateRequest) (*CategoryStateResponse, error) {
	return h.setActive(ctx, in.ID, h.svc.Deactivate)
}

func (h *categoriesHandler) setActive(ctx context.Context, rawID string, apply func(context.Context, core.RowID) (core.Category, error)) (*CategoryStateResponse, error) {
	id, err := core.ParseRowID(rawID)
	if err != nil {
		return nil, err
	}
	c, err := apply(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CategoryStateResponse{Category: toWire(c)}, nil
}
