package area

import "testing"

func TestNormalize_ExpandsProvinceAndAppendsSuffix(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		name string
		in   Area
		want Area
	}{
		{
			name: "short province with bare district token",
			in:   Area{Province: "서울", City: "강남"},
			want: Area{Province: "서울특별시", City: "강남구"},
		},
		{
			name: "bare county token",
			in:   Area{Province: "부산", City: "기장"},
			want: Area{Province: "부산광역시", City: "기장군"},
		},
		{
			name: "unknown bare token falls back to city suffix",
			in:   Area{Province: "경기", City: "수원"},
			want: Area{Province: "경기도", City: "수원시"},
		},
		{
			name: "already canonical input unchanged",
			in:   Area{Province: "서울특별시", City: "강남구", District: "역삼동"},
			want: Area{Province: "서울특별시", City: "강남구", District: "역삼동"},
		},
		{
			name: "unknown province passes through",
			in:   Area{Province: "개성", City: "중"},
			want: Area{Province: "개성", City: "중구"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := n.Normalize(tc.in)
			if got != tc.want {
				t.Fatalf("Normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	n := NewNormalizer()
	inputs := []Area{
		{Province: "서울", City: "강남"},
		{Province: "전남", City: "완도"},
		{Province: "경기", City: "수원", District: "팔달"},
		{Province: "제주"},
		{},
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		twice := n.Normalize(once)
		if once != twice {
			t.Fatalf("normalize not idempotent for %+v: %+v != %+v", in, once, twice)
		}
	}
}

func TestVariantsOf_CoversShortAndBareForms(t *testing.T) {
	n := NewNormalizer()
	variants := n.VariantsOf(Area{Province: "서울", City: "강남"})

	for _, want := range []string{
		"서울특별시 강남구",
		"서울 강남구",
		"서울특별시 강남",
		"서울 강남",
	} {
		if _, ok := variants[want]; !ok {
			t.Fatalf("variant set missing %q: %v", want, variants)
		}
	}
}

func TestVariantsOf_IncludesDistrictRenderings(t *testing.T) {
	n := NewNormalizer()
	variants := n.VariantsOf(Area{Province: "서울", City: "강남", District: "역삼동"})

	if _, ok := variants["서울특별시 강남구 역삼동"]; !ok {
		t.Fatalf("expected district variant, got %v", variants)
	}
	if _, ok := variants["서울 강남"]; !ok {
		t.Fatalf("expected districtless variant, got %v", variants)
	}
}

func TestMatch(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		a, b string
		want bool
	}{
		{"서울 강남", "서울특별시 강남구", true},
		{"서울특별시 강남구", "서울특별시 강남구", true},
		// Containment is intentionally loose for partially specified names.
		{"서울특별시", "서울특별시 강남구", true},
		{"부산광역시 해운대구", "서울특별시 강남구", false},
		{"", "서울특별시", false},
	}

	for _, tc := range tests {
		if got := n.Match(tc.a, tc.b); got != tc.want {
			t.Fatalf("Match(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
