package store

import "time"

// SessionStatus represents the lifecycle state persisted for a recording session.
type SessionStatus string

const (
	SessionReady     SessionStatus = "ready"
	SessionRecording SessionStatus = "recording"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionError     SessionStatus = "error"
)

// IsActive reports whether the session is still capturing or paused.
func (s SessionStatus) IsActive() bool {
	return s == SessionRecording || s == SessionPaused
}

// Session is one recording run.
type Session struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	StartTime    time.Time         `json:"startTime"`
	EndTime      *time.Time        `json:"endTime"`
	Status       SessionStatus     `json:"status"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	VendorID     string            `json:"vendorId,omitempty"`
	FrameCount   int               `json:"frameCount"`
	StorageBytes int64             `json:"storageBytes"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
}

func (s Session) RecordID() string { return s.ID }

// Rect is a crop rectangle in pixels of the image it was applied to.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// FrameMetadata records the conditions a frame was captured under.
type FrameMetadata struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	// BatteryLevel is 0..100, or -1 when unknown.
	BatteryLevel float64 `json:"batteryLevel"`
	Quality      float64 `json:"quality,omitempty"`
	DeviceID     string  `json:"deviceId,omitempty"`
}

// CapturedFrame is one snapshot image taken during a session.
type CapturedFrame struct {
	ID              string        `json:"id"`
	SessionID       string        `json:"sessionId"`
	Timestamp       time.Time     `json:"timestamp"`
	ImageURL        string        `json:"imageUrl"`
	ThumbnailURL    string        `json:"thumbnailUrl,omitempty"`
	IsEdited        bool          `json:"isEdited"`
	EditedImageURL  string        `json:"editedImageUrl,omitempty"`
	CropArea        *Rect         `json:"cropArea,omitempty"`
	ProductDetected string        `json:"productDetected,omitempty"`
	IsProcessed     bool          `json:"isProcessed"`
	Metadata        FrameMetadata `json:"metadata"`
}

func (f CapturedFrame) RecordID() string { return f.ID }

// BestImageURL returns the edited image when the frame was edited, else the
// original capture.
func (f CapturedFrame) BestImageURL() string {
	if f.IsEdited && f.EditedImageURL != "" {
		return f.EditedImageURL
	}
	return f.ImageURL
}

// ProductImage is one image attached to a product.
type ProductImage struct {
	URL       string `json:"url"`
	Alt       string `json:"alt,omitempty"`
	IsDefault bool   `json:"isDefault"`
}

// ProductVariant is a purchasable variation of a product.
type ProductVariant struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Price      float64           `json:"price"`
	Inventory  int               `json:"inventory"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Product is a catalog entry.
type Product struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	Price         float64           `json:"price"`
	Category      string            `json:"category,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	Variants      []ProductVariant  `json:"variants,omitempty"`
	Inventory     int               `json:"inventory"`
	IsPublished   bool              `json:"isPublished"`
	IsDeleted     bool              `json:"isDeleted"`
	VendorID      string            `json:"vendorId,omitempty"`
	Images        []ProductImage    `json:"images,omitempty"`
	SourceFrameID string            `json:"sourceFrameId,omitempty"`
	SessionID     string            `json:"sessionId,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func (p Product) RecordID() string { return p.ID }

// DefaultImage returns the image flagged default, falling back to the first.
func (p Product) DefaultImage() (ProductImage, bool) {
	for _, img := range p.Images {
		if img.IsDefault {
			return img, true
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0], true
	}
	return ProductImage{}, false
}

// Catalog is a named collection of products assembled from sessions.
type Catalog struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	VendorID    string    `json:"vendorId,omitempty"`
	SessionIDs  []string  `json:"sessionIds,omitempty"`
	ProductIDs  []string  `json:"productIds,omitempty"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (c Catalog) RecordID() string { return c.ID }

// User is a storefront account. Email is unique across users.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) RecordID() string { return u.ID }

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order is a customer order against a vendor.
type Order struct {
	ID         string      `json:"id"`
	CustomerID string      `json:"customerId"`
	VendorID   string      `json:"vendorId"`
	Status     string      `json:"status"`
	Items      []OrderItem `json:"items,omitempty"`
	Total      float64     `json:"total"`
	CreatedAt  time.Time   `json:"createdAt"`
}

func (o Order) RecordID() string { return o.ID }

// Setting is a keyed bag of preferences.
type Setting struct {
	ID        string         `json:"id"`
	Values    map[string]any `json:"values"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (s Setting) RecordID() string { return s.ID }
