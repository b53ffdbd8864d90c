// Package source loads the ordered work item list from a static JSON or YAML dataset.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	storageAdapter "github.com/tigerroll/nameforge/pkg/batch/adapter/storage"
	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// FileSource reads the dataset from a local file.
type FileSource struct {
	path string
	topN int
}

var _ port.WorkItemSource = (*FileSource)(nil)

// NewFileSource creates a FileSource. topN <= 0 keeps every item.
func NewFileSource(path string, topN int) *FileSource {
	return &FileSource{path: path, topN: topN}
}

// Load implements port.WorkItemSource.
func (s *FileSource) Load(ctx context.Context) ([]model.WorkItem, error) {
	if s.path == "" {
		return nil, exception.NewDataSourceError("source path is not configured", nil)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, exception.NewDataSourceError(fmt.Sprintf("failed to read source '%s'", s.path), err)
	}
	return Parse(data, s.topN)
}

// StorageSource reads the dataset from an object of a storage connection.
type StorageSource struct {
	conn       storageAdapter.StorageConnection
	objectName string
	topN       int
}

var _ port.WorkItemSource = (*StorageSource)(nil)

// NewStorageSource creates a StorageSource.
func NewStorageSource(conn storageAdapter.StorageConnection, objectName string, topN int) *StorageSource {
	return &StorageSource{conn: conn, objectName: objectName, topN: topN}
}

// Load implements port.WorkItemSource.
func (s *StorageSource) Load(ctx context.Context) ([]model.WorkItem, error) {
	rc, err := s.conn.Download(ctx, "", s.objectName)
	if err != nil {
		return nil, exception.NewDataSourceError(fmt.Sprintf("failed to open source object '%s' on '%s'", s.objectName, s.conn.Name()), err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, exception.NewDataSourceError(fmt.Sprintf("failed to read source object '%s'", s.objectName), err)
	}
	return Parse(data, s.topN)
}

// Parse decodes a dataset. The document is either a list of entries or a mapping with a "names" list;
// JSON is accepted as YAML. Entries without an id (or name) or an integral rank are dropped. Ids are
// normalized, duplicates keep the lowest rank, and the result is sorted by rank then id.
func Parse(data []byte, topN int) ([]model.WorkItem, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, exception.NewDataSourceError("source is empty", nil)
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, exception.NewDataSourceError("source is malformed", err)
	}

	var entries []interface{}
	switch v := doc.(type) {
	case []interface{}:
		entries = v
	case map[string]interface{}:
		list, ok := v["names"].([]interface{})
		if !ok {
			return nil, exception.NewDataSourceError("source mapping has no 'names' list", nil)
		}
		entries = list
	default:
		return nil, exception.NewDataSourceError(fmt.Sprintf("source root must be a list or a mapping, got %T", doc), nil)
	}

	byID := make(map[string]model.WorkItem, len(entries))
	dropped := 0
	for i, raw := range entries {
		item, err := toWorkItem(raw)
		if err != nil {
			dropped++
			logger.Debugf("Dropping source entry %d: %v", i, err)
			continue
		}
		if existing, ok := byID[item.ID]; ok && existing.Rank <= item.Rank {
			continue
		}
		byID[item.ID] = item
	}
	if dropped > 0 {
		logger.Warnf("Dropped %d source entries without a usable id or rank.", dropped)
	}

	items := make([]model.WorkItem, 0, len(byID))
	for _, item := range byID {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Rank != items[j].Rank {
			return items[i].Rank < items[j].Rank
		}
		return items[i].ID < items[j].ID
	})
	if topN > 0 && len(items) > topN {
		items = items[:topN]
	}
	return items, nil
}

var (
	errNoID   = errors.New("missing id")
	errNoRank = errors.New("missing or non-integral rank")
)

func toWorkItem(raw interface{}) (model.WorkItem, error) {
	fields, ok := raw.(map[string]interface{})
	if !ok {
		return model.WorkItem{}, fmt.Errorf("entry is %T, not a mapping", raw)
	}

	rawID := scalarString(fields["id"])
	if rawID == "" {
		rawID = scalarString(fields["name"])
	}
	id := model.NormalizeID(rawID)
	if id == "" {
		return model.WorkItem{}, errNoID
	}
	rank, ok := toRank(fields["rank"])
	if !ok {
		return model.WorkItem{}, errNoRank
	}

	attributes := make(map[string]string)
	for k, v := range fields {
		if k == "id" || k == "rank" {
			continue
		}
		if s := scalarString(v); s != "" {
			attributes[k] = s
		}
	}
	if len(attributes) == 0 {
		attributes = nil
	}
	return model.WorkItem{ID: id, Rank: rank, Attributes: attributes}, nil
}

// toRank accepts whole numbers that fit in an int.
func toRank(v interface{}) (int, bool) {
	switch r := v.(type) {
	case int:
		return r, true
	case int64:
		if r >= math.MinInt && r <= math.MaxInt {
			return int(r), true
		}
	case uint64:
		if r <= math.MaxInt {
			return int(r), true
		}
	case float64:
		if r == math.Trunc(r) && r >= math.MinInt && r < math.MaxInt {
			return int(r), true
		}
	case string:
		if n, err := strconv.Atoi(r); err == nil {
			return n, true
		}
	}
	return 0, false
}

// scalarString renders scalar values; lists and mappings yield "".
func scalarString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(s)
	default:
		return ""
	}
}
