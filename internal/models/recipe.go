package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DietaryType string

const (
	DietaryVegan      DietaryType = "Vegan"
	DietaryVegetarian DietaryType = "Vegetarian"
	DietaryGlutenFree DietaryType = "Gluten-Free"
	DietaryNone       DietaryType = "None"
)

// DietaryTypes lists every accepted value, in the order clients display them.
var DietaryTypes = []DietaryType{DietaryVegan, DietaryVegetarian, DietaryGlutenFree, DietaryNone}

func (d DietaryType) Valid() bool {
	for _, known := range DietaryTypes {
		if d == known {
			return true
		}
	}
	return false
}

// StringList is an ordered list of text lines persisted as a JSON array.
// Order is preserved exactly as submitted.
type StringList []string

// Value implements the driver.Valuer interface
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Keep "&", "<" and ">" literal so LIKE prefilters see the raw text.
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]string(l)); err != nil {
		return nil, err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Scan implements the sql.Scanner interface
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("StringList: unsupported scan type %T", value)
	}

	var lines []string
	if err := json.Unmarshal(raw, &lines); err != nil {
		return err
	}
	if lines == nil {
		lines = []string{}
	}
	*l = lines
	return nil
}

type Recipe struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string      `gorm:"type:text;not null" json:"title"`
	Description string      `gorm:"type:text;not null" json:"description"`
	Ingredients StringList  `gorm:"type:text;not null" json:"ingredients"`
	Steps       StringList  `gorm:"type:text;not null" json:"steps"`
	Images      StringList  `gorm:"type:text;not null" json:"images"`
	Cuisine     string      `gorm:"type:varchar(100);not null;index" json:"cuisine"`
	DietaryType DietaryType `gorm:"type:varchar(20);not null;default:'None';index" json:"dietaryType"`
	PrepTime    int         `gorm:"not null;index" json:"prepTime"`
	Rating      float64     `gorm:"not null;default:0" json:"rating"`
	CreatedBy   uuid.UUID   `gorm:"type:uuid;not null;index" json:"createdBy"`
	CreatedAt   time.Time   `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`

	// Relationships, loaded on read
	Author User         `gorm:"foreignKey:CreatedBy" json:"-"`
	Likes  []RecipeLike `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.DietaryType == "" {
		r.DietaryType = DietaryNone
	}
	return nil
}

// LikedBy returns the ids of users who like the recipe, oldest like first.
func (r *Recipe) LikedBy() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Likes))
	for _, like := range r.Likes {
		ids = append(ids, like.UserID)
	}
	return ids
}
