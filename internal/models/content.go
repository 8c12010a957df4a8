package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// ContentType discriminates the two entity shapes stored in the content table.
// It is fixed at creation and never changes afterwards.
type ContentType string

const (
	ContentTypeNote     ContentType = "NOTE"
	ContentTypeResource ContentType = "RESOURCE"
)

// ContentVisibility defines the read-access tier of a content record.
type ContentVisibility string

const (
	VisibilityPrivate ContentVisibility = "PRIVATE"
	VisibilityFamily  ContentVisibility = "FAMILY"
	VisibilityShared  ContentVisibility = "SHARED"
	VisibilityPublic  ContentVisibility = "PUBLIC"
)

// NoteType classifies note content. Defaults to TEXT on creation.
type NoteType string

const (
	NoteTypeText      NoteType = "TEXT"
	NoteTypeMarkdown  NoteType = "MARKDOWN"
	NoteTypeChecklist NoteType = "CHECKLIST"
)

// ResourceType classifies curated library resources.
type ResourceType string

const (
	ResourceTypeArticle  ResourceType = "ARTICLE"
	ResourceTypeLink     ResourceType = "LINK"
	ResourceTypeDocument ResourceType = "DOCUMENT"
	ResourceTypeTemplate ResourceType = "TEMPLATE"
	ResourceTypeVideo    ResourceType = "VIDEO"
)

// ResourceStatus tracks a resource through the curation pipeline.
type ResourceStatus string

const (
	StatusDraft    ResourceStatus = "DRAFT"
	StatusPending  ResourceStatus = "PENDING"
	StatusApproved ResourceStatus = "APPROVED"
	StatusFeatured ResourceStatus = "FEATURED"
	StatusRejected ResourceStatus = "REJECTED"
)

// Content is the unified entity representing either a note or a resource.
// Type-specific columns are nullable and valid only for the matching
// content_type; the service layer rejects cross-type access at every
// operation boundary.
type Content struct {
	ID          string            `db:"id" json:"id"`
	ContentType ContentType       `db:"content_type" json:"content_type"`
	Title       string            `db:"title" json:"title"`
	Description *string           `db:"description" json:"description,omitempty"`
	Body        *string           `db:"body" json:"body,omitempty"`
	Tags        pq.StringArray    `db:"tags" json:"tags"`
	CategoryID  *string           `db:"category_id" json:"category_id,omitempty"`
	FamilyID    *string           `db:"family_id" json:"family_id,omitempty"`
	CreatedBy   string            `db:"created_by" json:"created_by"`
	Visibility  ContentVisibility `db:"visibility" json:"visibility"`
	ViewCount   int               `db:"view_count" json:"view_count"`

	// Note-only columns.
	NoteType      *NoteType  `db:"note_type" json:"note_type,omitempty"`
	IsPinned      bool       `db:"is_pinned" json:"is_pinned"`
	AllowComments bool       `db:"allow_comments" json:"allow_comments"`
	AllowEditing  bool       `db:"allow_editing" json:"allow_editing"`
	LastEditedBy  *string    `db:"last_edited_by" json:"last_edited_by,omitempty"`
	LastEditedAt  *time.Time `db:"last_edited_at" json:"last_edited_at,omitempty"`

	// Resource-only columns.
	ResourceType   *ResourceType   `db:"resource_type" json:"resource_type,omitempty"`
	URL            *string         `db:"url" json:"url,omitempty"`
	TargetAudience pq.StringArray  `db:"target_audience" json:"target_audience,omitempty"`
	ExternalMeta   json.RawMessage `db:"external_meta" json:"external_meta,omitempty"`
	Status         *ResourceStatus `db:"status" json:"status,omitempty"`
	ApprovedBy     *string         `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt     *time.Time      `db:"approved_at" json:"approved_at,omitempty"`
	FeaturedBy     *string         `db:"featured_by" json:"featured_by,omitempty"`
	FeaturedAt     *time.Time      `db:"featured_at" json:"featured_at,omitempty"`
	Rating         *float64        `db:"rating" json:"rating,omitempty"`
	RatingCount    int             `db:"rating_count" json:"rating_count"`

	// Feature flags gating sub-workflows. HasAssignments and HasSharing are
	// one-way: they record that the workflow was ever used, not live state.
	HasAssignments bool `db:"has_assignments" json:"has_assignments"`
	HasCuration    bool `db:"has_curation" json:"has_curation"`
	HasRatings     bool `db:"has_ratings" json:"has_ratings"`
	HasSharing     bool `db:"has_sharing" json:"has_sharing"`

	IsDeleted bool       `db:"is_deleted" json:"-"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// IsNote reports whether the record carries the note shape.
func (c *Content) IsNote() bool { return c.ContentType == ContentTypeNote }

// IsResource reports whether the record carries the resource shape.
func (c *Content) IsResource() bool { return c.ContentType == ContentTypeResource }

// ContentDetail joins the base row with creator, family and category names
// plus optionally hydrated child collections.
type ContentDetail struct {
	Content
	CreatorName  *string `db:"creator_name" json:"creator_name,omitempty"`
	FamilyName   *string `db:"family_name" json:"family_name,omitempty"`
	CategoryName *string `db:"category_name" json:"category_name,omitempty"`

	Documents   []ContentDocument   `db:"-" json:"documents,omitempty"`
	Shares      []ContentShare      `db:"-" json:"shares,omitempty"`
	Assignments []ContentAssignment `db:"-" json:"assignments,omitempty"`
	Ratings     []ContentRating     `db:"-" json:"ratings,omitempty"`
}

// ContentLoadOptions toggles which relations to hydrate on detail reads.
// Each relation is independently switchable to avoid over-fetching.
type ContentLoadOptions struct {
	Documents   bool
	Shares      bool
	Assignments bool
	Ratings     bool
}

// ContentFilter captures the conjunctive filter criteria for content listings.
type ContentFilter struct {
	ContentTypes         []ContentType
	NoteTypes            []NoteType
	ResourceTypes        []ResourceType
	Statuses             []ResourceStatus
	CreatedBy            string
	FamilyID             string
	CategoryID           string
	Visibilities         []ContentVisibility
	Tags                 []string
	HealthcareCategories []string
	Search               string
	HasAssignments       *bool
	HasCuration          *bool
	HasRatings           *bool
	HasSharing           *bool
	Featured             *bool
	Verified             *bool
	MinRating            *float64
	Page                 int
	Limit                int
	SortBy               string
	SortOrder            string
}

// VisibilityGate restricts listing results for non-admin actors to the union
// of their own content, public content, their family's content, and content
// explicitly shared with them.
type VisibilityGate struct {
	Admin    bool
	ActorID  string
	FamilyID *string
}
