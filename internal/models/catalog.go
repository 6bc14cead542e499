package models

import (
	"time"

	"gorm.io/gorm"
)

type QuestionType string

const (
	SingleChoice QuestionType = "single_choice"
	MultiSelect  QuestionType = "multi_select"
)

// Section is one block of the assessment catalog. Sections and their
// questions are immutable once loaded; taking an assessment never mutates
// the catalog.
type Section struct {
	ID          string  `json:"id" gorm:"primaryKey;size:64"`
	Title       string  `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	Description string  `json:"description" gorm:"type:text"`
	Order       int     `json:"order" gorm:"column:display_order;not null;index"`
	Weight      float64 `json:"weight" gorm:"default:1"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Questions []Question `json:"questions" gorm:"foreignKey:SectionID"`
}

type Question struct {
	ID          string       `json:"id" gorm:"primaryKey;size:64"`
	SectionID   string       `json:"section_id" gorm:"not null;size:64;index"`
	Text        string       `json:"text" gorm:"type:text;not null" validate:"required"`
	Type        QuestionType `json:"type" gorm:"not null;size:32" validate:"required,question_type"`
	Weight      float64      `json:"weight" gorm:"default:1" validate:"gt=0"`
	Explanation string       `json:"explanation" gorm:"type:text"`
	Order       int          `json:"order" gorm:"column:display_order;not null;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Options []Option `json:"options" gorm:"foreignKey:QuestionID"`
}

type Option struct {
	ID          uint    `json:"-" gorm:"primaryKey"`
	QuestionID  string  `json:"-" gorm:"not null;size:64;index"`
	Value       string  `json:"value" gorm:"not null;size:128" validate:"required"`
	Label       string  `json:"label" gorm:"not null;size:500" validate:"required"`
	Description *string `json:"description,omitempty" gorm:"type:text"`
	Order       int     `json:"-" gorm:"column:display_order;not null"`
}

// CatalogStructure is the tree handed to the taking engine: the ordered
// sections (optionally filtered to an assessment's selection) plus the
// total question count used for progress math.
type CatalogStructure struct {
	Sections       []Section `json:"sections"`
	TotalQuestions int       `json:"total_questions"`
}

// FilterSections returns a copy of the structure containing only the
// sections whose ids appear in keep, preserving catalog order.
func (c *CatalogStructure) FilterSections(keep []string) *CatalogStructure {
	keepSet := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}

	filtered := &CatalogStructure{}
	for _, section := range c.Sections {
		if _, ok := keepSet[section.ID]; !ok {
			continue
		}
		filtered.Sections = append(filtered.Sections, section)
		filtered.TotalQuestions += len(section.Questions)
	}
	return filtered
}

// SectionIDs returns all section ids in catalog order.
func (c *CatalogStructure) SectionIDs() []string {
	ids := make([]string, len(c.Sections))
	for i, section := range c.Sections {
		ids[i] = section.ID
	}
	return ids
}

func (Section) TableName() string {
	return "catalog_sections"
}

func (Question) TableName() string {
	return "catalog_questions"
}

func (Option) TableName() string {
	return "catalog_options"
}
