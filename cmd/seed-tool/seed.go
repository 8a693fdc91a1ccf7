package main

import (
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fruitsalade/docportal/pkg/models"
)

// seedFile is the YAML layout read by the seed tool:
//
//	employees:
//	  - id: u1
//	    name: Priya Shah
//	    department: Engineering
//	    admin: true
//	documents:
//	  - id: d1
//	    owner: u1
//	    type: Salary Slip
//	    uploaded: 2024-06-28
//	    file: slips/june.pdf
type seedFile struct {
	Employees []seedEmployee `yaml:"employees"`
	Documents []seedDocument `yaml:"documents"`
}

type seedEmployee struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Email      string `yaml:"email"`
	Department string `yaml:"department"`
	Location   string `yaml:"location"`
	Status     string `yaml:"status"`
	Admin      bool   `yaml:"admin"`
}

type seedDocument struct {
	ID       string `yaml:"id"`
	Owner    string `yaml:"owner"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Uploaded string `yaml:"uploaded"`
	// File is a local path, relative to the seed file, uploaded to the
	// object store. URL is used instead for externally hosted documents.
	File string `yaml:"file"`
	URL  string `yaml:"url"`
}

func loadSeed(p string) (*seedFile, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return parseSeed(data)
}

func parseSeed(data []byte) (*seedFile, error) {
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	ids := make(map[string]bool)
	for i, e := range sf.Employees {
		if e.ID == "" || e.Name == "" {
			return nil, fmt.Errorf("employee %d: id and name are required", i+1)
		}
		if ids[e.ID] {
			return nil, fmt.Errorf("employee %s listed twice", e.ID)
		}
		ids[e.ID] = true
	}
	docs := make(map[string]bool)
	for i, d := range sf.Documents {
		if d.ID == "" {
			return nil, fmt.Errorf("document %d: id is required", i+1)
		}
		if docs[d.ID] {
			return nil, fmt.Errorf("document %s listed twice", d.ID)
		}
		docs[d.ID] = true
		if d.Owner != "" && !ids[d.Owner] {
			return nil, fmt.Errorf("document %s: unknown owner %q", d.ID, d.Owner)
		}
		if d.Name == "" && d.File == "" {
			return nil, fmt.Errorf("document %s: name or file is required", d.ID)
		}
		if d.File != "" && d.URL != "" {
			return nil, fmt.Errorf("document %s: file and url are exclusive", d.ID)
		}
	}
	return &sf, nil
}

func (e seedEmployee) employee() models.Employee {
	return models.Employee{
		ID:         e.ID,
		Name:       e.Name,
		Email:      e.Email,
		Department: e.Department,
		Location:   e.Location,
		Status:     e.Status,
	}
}

// document builds the record for d. Content from a local file is stored
// under owner/id.ext; the caller uploads it.
func (d seedDocument) document() (models.Document, error) {
	doc := models.Document{
		ID:      d.ID,
		OwnerID: d.Owner,
		Name:    d.Name,
		Type:    d.Type,
		URL:     d.URL,
	}
	if d.Uploaded != "" {
		t, err := time.Parse(time.DateOnly, d.Uploaded)
		if err != nil {
			return models.Document{}, fmt.Errorf("document %s: uploaded: %w", d.ID, err)
		}
		doc.UploadDate = t
	}
	if doc.Name == "" {
		doc.Name = filepath.Base(d.File)
	}

	ext := strings.ToLower(path.Ext(doc.Name))
	doc.FileType = strings.TrimPrefix(ext, ".")
	if d.File != "" {
		owner := d.Owner
		if owner == "" {
			owner = "unassigned"
		}
		doc.StorageKey = owner + "/" + d.ID + ext
	}
	return doc, nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
