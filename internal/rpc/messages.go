package rpc

import "time"

// Category is the wire form of a stored category.
type Category struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	URLSlug      *string   `json:"url_slug,omitempty"`
	CategoryType string    `json:"category_type"`
	Color        *string   `json:"color,omitempty"`
	Icon         *string   `json:"icon,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedOn    time.Time `json:"created_on"`
	UpdatedOn    time.Time `json:"updated_on"`
}

// CategoryCreateRequest carries a new category. IsActive defaults to true.
type CategoryCreateRequest struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
	URLSlug      *string `json:"url_slug,omitempty"`
	CategoryType string  `json:"category_type"`
	Color        *string `json:"color,omitempty"`
	Icon         *string `json:"icon,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

type CategoryCreateResponse struct {
	Category Category `json:"category"`
}

type CategoriesCreateBatchRequest struct {
	Categories []CategoryCreateRequest `json:"categories"`
}

type CategoriesCreateBatchResponse struct {
	Categories []Category `json:"categories"`
}

type CategoryGetRequest struct {
	ID         string `json:"id"`
	OnlyActive bool   `json:"only_active,omitempty"`
}

type CategoryGetByCodeRequest struct {
	Code       string `json:"code"`
	OnlyActive bool   `json:"only_active,omitempty"`
}

type CategoryGetBySlugRequest struct {
	URLSlug    string `json:"url_slug"`
	OnlyActive bool   `json:"only_active,omitempty"`
}

type CategoryGetResponse struct {
	Category Category `json:"category"`
}

// CategoriesListRequest pages through categories newest first. A zero
// PageSize asks for the server default.
type CategoriesListRequest struct {
	PageSize     int32   `json:"page_size,omitempty"`
	PageToken    string  `json:"page_token,omitempty"`
	CategoryType *string `json:"category_type,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

type CategoriesListResponse struct {
	Categories    []Category `json:"categories"`
	NextPageToken string     `json:"next_page_token,omitempty"`
}

// CategoryFields holds the updatable columns. A null or "" optional field
// named in the mask is cleared.
type CategoryFields struct {
	Code         *string `json:"code,omitempty"`
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	URLSlug      *string `json:"url_slug,omitempty"`
	CategoryType *string `json:"category_type,omitempty"`
	Color        *string `json:"color,omitempty"`
	Icon         *string `json:"icon,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

// CategoryUpdateRequest updates the fields of ID listed in UpdateMask. An
// empty mask updates every field present in Category.
type CategoryUpdateRequest struct {
	ID          string         `json:"id"`
	Category    CategoryFields `json:"category"`
	UpdateMask  []string       `json:"update_mask,omitempty"`
	IfUpdatedOn *time.Time     `json:"if_updated_on,omitempty"`
}

type CategoryUpdateResponse struct {
	Category Category `json:"category"`
}

type CategoryActivateRequest struct {
	ID string `json:"id"`
}

type CategoryDeactivateRequest struct {
	ID string `json:"id"`
}

type CategoryStateResponse struct {
	Category Category `json:"category"`
}

type PingRequest struct{}

type PingResponse struct {
	Message string `json:"message"`
}
