// Package fixture reads course documents from disk.
package fixture

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"foundry-course-service/internal/domain"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed course.schema.json
var courseSchemaJSON string

var courseSchema = gojsonschema.NewStringLoader(courseSchemaJSON)

// LoadDir decodes every .yaml, .yml and .json file under dir. A document that
// fails schema or structural validation aborts the load.
func LoadDir(dir string, log *zap.Logger) (map[string]domain.Course, error) {
	courses := make(map[string]domain.Course)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".json":
		default:
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		course, err := Decode(path, data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if _, dup := courses[course.ID]; dup {
			return fmt.Errorf("%s: %w: duplicate course id %q", path, domain.ErrInvalidCourse, course.ID)
		}
		courses[course.ID] = course
		log.Debug("course fixture loaded", zap.String("path", path), zap.String("course_id", course.ID))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}
	log.Info("course fixtures loaded", zap.String("dir", dir), zap.Int("courses", len(courses)))
	return courses, nil
}

// Decode parses one course document. The format follows the file extension;
// anything that is not .json is read as YAML.
func Decode(path string, data []byte) (domain.Course, error) {
	var doc interface{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &doc); err != nil {
			return domain.Course{}, fmt.Errorf("parse json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return domain.Course{}, fmt.Errorf("parse yaml: %w", err)
		}
	}

	result, err := gojsonschema.Validate(courseSchema, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return domain.Course{}, fmt.Errorf("schema check: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return domain.Course{}, fmt.Errorf("%w: %s", domain.ErrInvalidCourse, strings.Join(msgs, "; "))
	}

	// the schema-checked tree is re-encoded so both formats share the json tags
	normalized, err := json.Marshal(doc)
	if err != nil {
		return domain.Course{}, fmt.Errorf("normalize: %w", err)
	}
	var course domain.Course
	if err := json.Unmarshal(normalized, &course); err != nil {
		return domain.Course{}, fmt.Errorf("decode course: %w", err)
	}
	if err := validateCourse(course); err != nil {
		return domain.Course{}, err
	}
	return course, nil
}
