package pagination

import "testing"

func TestParamsNormalize(t *testing.T) {
	p := Params{Page: 0, Limit: 500}.Normalize()
	if p.Page != 1 || p.Limit != MaxLimit {
		t.Fatalf("unexpected normalized params %+v", p)
	}
	if got := (Params{Page: 3, Limit: 8}).Offset(); got != 16 {
		t.Fatalf("expected offset 16, got %d", got)
	}
	if got := (Params{}).Offset(); got != 0 {
		t.Fatalf("expected offset 0, got %d", got)
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total int64
		limit int
		want  int
	}{
		{total: 0, limit: 10, want: 0},
		{total: 10, limit: 10, want: 1},
		{total: 11, limit: 10, want: 2},
		{total: 17, limit: 8, want: 3},
		{total: 5, limit: 0, want: 1},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.limit); got != tc.want {
			t.Fatalf("TotalPages(%d, %d) = %d, want %d", tc.total, tc.limit, got, tc.want)
		}
	}
}

func TestParseSort(t *testing.T) {
	columns := map[string]string{"createdAt": "created_at", "price": "display_price"}
	fallback := Sort{Column: "created_at", Desc: true}

	s, err := ParseSort("", columns, fallback)
	if err != nil || s != fallback {
		t.Fatalf("expected fallback, got %+v err=%v", s, err)
	}
	s, err = ParseSort("price:asc", columns, fallback)
	if err != nil || s.Column != "display_price" || s.Desc {
		t.Fatalf("unexpected sort %+v err=%v", s, err)
	}
	if s.Clause() != "display_price ASC" {
		t.Fatalf("unexpected clause %q", s.Clause())
	}
	s, err = ParseSort("createdAt:DESC", columns, fallback)
	if err != nil || !s.Desc || s.Clause() != "created_at DESC" {
		t.Fatalf("unexpected sort %+v err=%v", s, err)
	}
	if _, err := ParseSort("id; drop table", columns, fallback); err == nil {
		t.Fatal("expected unknown field to fail")
	}
	if _, err := ParseSort("price:sideways", columns, fallback); err == nil {
		t.Fatal("expected unknown direction to fail")
	}
}
