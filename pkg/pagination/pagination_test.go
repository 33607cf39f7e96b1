package pagination_test

import (
	"net/url"
	"slices"
	"strings"
	"testing"

	"github.com/JaimeStill/dermis/pkg/pagination"
)

func defaultConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 6, MaxPageSize: 50}
}

func TestConfigFinalizeDefaults(t *testing.T) {
	cfg := pagination.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.DefaultPageSize != 6 {
		t.Errorf("DefaultPageSize = %d, want 6", cfg.DefaultPageSize)
	}
	if cfg.MaxPageSize != 50 {
		t.Errorf("MaxPageSize = %d, want 50", cfg.MaxPageSize)
	}
}

func TestConfigFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_PAGE_SIZE", "12")
	t.Setenv("TEST_MAX_PAGE", "24")

	env := &pagination.ConfigEnv{
		DefaultPageSize: "TEST_PAGE_SIZE",
		MaxPageSize:     "TEST_MAX_PAGE",
	}

	cfg := pagination.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.DefaultPageSize != 12 {
		t.Errorf("DefaultPageSize = %d, want 12", cfg.DefaultPageSize)
	}
	if cfg.MaxPageSize != 24 {
		t.Errorf("MaxPageSize = %d, want 24", cfg.MaxPageSize)
	}
}

func TestConfigFinalizeValidation(t *testing.T) {
	cfg := pagination.Config{DefaultPageSize: 200, MaxPageSize: 100}
	err := cfg.Finalize(nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "default_page_size cannot exceed max_page_size") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestConfigMerge(t *testing.T) {
	base := pagination.Config{DefaultPageSize: 6, MaxPageSize: 50}
	overlay := pagination.Config{DefaultPageSize: 9}
	base.Merge(&overlay)

	if base.DefaultPageSize != 9 {
		t.Errorf("DefaultPageSize = %d, want 9", base.DefaultPageSize)
	}
	if base.MaxPageSize != 50 {
		t.Errorf("MaxPageSize = %d, want 50 (unchanged)", base.MaxPageSize)
	}
}

func TestPageRequestNormalize(t *testing.T) {
	cfg := defaultConfig()

	tests := []struct {
		name         string
		req          pagination.PageRequest
		wantPage     int
		wantPageSize int
	}{
		{"zero values get defaults", pagination.PageRequest{}, 1, 6},
		{"negative page corrected", pagination.PageRequest{Page: -1, PageSize: 10}, 1, 10},
		{"page size clamped to max", pagination.PageRequest{Page: 1, PageSize: 500}, 1, 50},
		{"valid values preserved", pagination.PageRequest{Page: 3, PageSize: 25}, 3, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize(cfg)
			if tt.req.Page != tt.wantPage {
				t.Errorf("Page = %d, want %d", tt.req.Page, tt.wantPage)
			}
			if tt.req.PageSize != tt.wantPageSize {
				t.Errorf("PageSize = %d, want %d", tt.req.PageSize, tt.wantPageSize)
			}
		})
	}
}

func TestPageRequestOffset(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		pageSize   int
		wantOffset int
	}{
		{"page 1", 1, 6, 0},
		{"page 2", 2, 6, 6},
		{"page 3 size 10", 3, 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := pagination.PageRequest{Page: tt.page, PageSize: tt.pageSize}
			if got := req.Offset(); got != tt.wantOffset {
				t.Errorf("Offset() = %d, want %d", got, tt.wantOffset)
			}
		})
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	cfg := defaultConfig()

	t.Run("params present", func(t *testing.T) {
		req := pagination.PageRequestFromQuery(url.Values{"page": {"2"}, "page_size": {"15"}}, cfg)
		if req.Page != 2 || req.PageSize != 15 {
			t.Errorf("req = %+v, want page 2 size 15", req)
		}
	})

	t.Run("empty params get defaults", func(t *testing.T) {
		req := pagination.PageRequestFromQuery(url.Values{}, cfg)
		if req.Page != 1 || req.PageSize != 6 {
			t.Errorf("req = %+v, want page 1 size 6", req)
		}
	})

	t.Run("garbage ignored", func(t *testing.T) {
		req := pagination.PageRequestFromQuery(url.Values{"page": {"two"}}, cfg)
		if req.Page != 1 {
			t.Errorf("Page = %d, want 1", req.Page)
		}
	})
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name           string
		total          int
		pageSize       int
		wantTotalPages int
	}{
		{"exact division", 12, 6, 2},
		{"remainder", 13, 6, 3},
		{"single page", 5, 6, 1},
		{"empty result", 0, 6, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := pagination.NewPageResult([]string{"a"}, tt.total, 1, tt.pageSize)
			if result.TotalPages != tt.wantTotalPages {
				t.Errorf("TotalPages = %d, want %d", result.TotalPages, tt.wantTotalPages)
			}
			if result.Total != tt.total {
				t.Errorf("Total = %d, want %d", result.Total, tt.total)
			}
		})
	}
}

func TestNewPageResultNilDataBecomesEmpty(t *testing.T) {
	result := pagination.NewPageResult[string](nil, 0, 1, 6)
	if result.Data == nil {
		t.Error("Data should be empty slice, not nil")
	}
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}

	tests := []struct {
		name     string
		items    []int
		page     int
		want     []int
		wantPage int
	}{
		{"first page", items, 1, []int{1, 2, 3, 4, 5, 6}, 1},
		{"last partial page", items, 3, []int{13}, 3},
		{"past the end clamps", items, 9, []int{13}, 3},
		{"empty list", nil, 2, []int{}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pagination.Slice(tt.items, pagination.PageRequest{Page: tt.page, PageSize: 6})
			if !slices.Equal(got.Data, tt.want) {
				t.Errorf("Data = %v, want %v", got.Data, tt.want)
			}
			if got.Page != tt.wantPage {
				t.Errorf("Page = %d, want %d", got.Page, tt.wantPage)
			}
			if got.Total != len(tt.items) {
				t.Errorf("Total = %d, want %d", got.Total, len(tt.items))
			}
		})
	}
}

func TestSliceCopies(t *testing.T) {
	items := []string{"a", "b", "c"}
	got := pagination.Slice(items, pagination.PageRequest{Page: 1, PageSize: 2})
	got.Data[0] = "z"
	if items[0] != "a" {
		t.Error("Slice should not alias the input")
	}
}
