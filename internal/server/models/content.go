package models

import "time"

type ContentStatus string

const (
	StatusDraft     ContentStatus = "draft"
	StatusPublished ContentStatus = "published"
	StatusArchived  ContentStatus = "archived"
)

type Visibility string

const (
	VisibilityPublic            Visibility = "public"
	VisibilityPrivate           Visibility = "private"
	VisibilityPasswordProtected Visibility = "password_protected"
)

type RelationshipType string

const (
	RelationFeatured   RelationshipType = "featured"
	RelationGallery    RelationshipType = "gallery"
	RelationAttachment RelationshipType = "attachment"
)

// ContentType groups content items ("article", "page", ...).
type ContentType struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	DefaultTemplate  string    `json:"defaultTemplate"`
	SupportsComments bool      `json:"supportsComments"`
	SupportsSticky   bool      `json:"supportsSticky"`
	CreatedAt        time.Time `json:"createdAt"`
}

// MediaRelation attaches a media object to a content item.
type MediaRelation struct {
	MediaID          string           `json:"media"`
	RelationshipType RelationshipType `json:"relationshipType"`
	SortOrder        int              `json:"sortOrder"`
}

type ContentItem struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Slug           string          `json:"slug"`
	Status         ContentStatus   `json:"status"`
	AuthorID       string          `json:"author,omitempty"`
	PublishedAt    *time.Time      `json:"publishedAt,omitempty"`
	ContentTypeID  string          `json:"contentType"`
	Visibility     Visibility      `json:"visibility"`
	SortOrder      int             `json:"sortOrder"`
	Content        string          `json:"content"`
	Excerpt        string          `json:"excerpt"`
	Categories     []string        `json:"categories"`
	Tags           []string        `json:"tags"`
	MediaRelations []MediaRelation `json:"mediaRelations"`
	Settings       map[string]any  `json:"settings"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Media is an object stored in the S3 bucket.
type Media struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	StorageKey  string    `json:"storageKey"`
	UploadedBy  string    `json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}
