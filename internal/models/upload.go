package models

import (
	"math"
	"strconv"
	"strings"
)

// File types reported by the backend after parsing an upload
const (
	FileTypeTransactions = "transactions"
	FileTypePortfolio    = "portfolio"
)

// UploadedFile describes a file the backend has parsed
type UploadedFile struct {
	Filename string   `json:"filename"`
	Rows     int      `json:"rows"`
	Columns  []string `json:"columns,omitempty"`
}

// UploadResult is the backend response to a file upload
type UploadResult struct {
	Filename       string            `json:"filename"`
	Rows           int               `json:"rows"`
	Columns        []string          `json:"columns"`
	Sample         []map[string]any  `json:"sample"`
	FileType       string            `json:"file_type"`
	Imported       int               `json:"imported,omitempty"`
	DetectedFields map[string]string `json:"detected_fields,omitempty"`
}

// UploadList is the backend response listing uploads
type UploadList struct {
	Files []UploadedFile `json:"files"`
}

// ColumnList is the backend response listing the columns of a file
type ColumnList struct {
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}

// ColumnValues holds the raw values of one column of one file
type ColumnValues struct {
	File   string `json:"file"`
	Column string `json:"column"`
	Values []any  `json:"values"`
}

// Numbers returns the finite numeric values in order, parsing numeric strings
func (c ColumnValues) Numbers() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if f, ok := ToFloat(v); ok {
			out = append(out, f)
		}
	}
	return out
}

// Labels returns the textual values in order, empty for non-strings
func (c ColumnValues) Labels() []string {
	out := make([]string, len(c.Values))
	for i, v := range c.Values {
		if s, ok := v.(string); ok {
			out[i] = s
		}
	}
	return out
}

// ToFloat converts a decoded JSON value to a finite float
func ToFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
