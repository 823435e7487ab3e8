package models

import "strings"

// Category groups projects.
type Category struct {
	Record
	Name     string `validate:"required,max=200"`
	Visible  bool
	Internal bool
}

// NewCategory creates an unsaved, visible, non-internal category.
func NewCategory(name string) *Category {
	return &Category{Record: newRecord(), Name: strings.TrimSpace(name), Visible: true}
}

func (c *Category) Validate() error { return Validate(c) }

func (c *Category) Target() Target { return Target{Type: TargetCategory, ID: c.ID()} }

// Project groups issues and tasks within a category, and may be linked to a GitHub repository.
type Project struct {
	Record
	CategoryID string `validate:"required"`
	Name       string `validate:"required,max=200"`
	Visible    bool
	Internal   bool
	GitHubRepo string `validate:"omitempty,github_repo"`
	GitHubURL  string `validate:"omitempty,url"`
}

// NewProject creates an unsaved, visible, non-internal project in a category.
func NewProject(categoryID, name string) *Project {
	return &Project{Record: newRecord(), CategoryID: categoryID, Name: strings.TrimSpace(name), Visible: true}
}

func (p *Project) Validate() error { return Validate(p) }

func (p *Project) Target() Target { return Target{Type: TargetProject, ID: p.ID()} }

// HasRepo reports whether issues in this project are mirrored to GitHub.
func (p *Project) HasRepo() bool { return p != nil && p.GitHubRepo != "" }
