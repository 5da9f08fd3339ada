package textutil

import (
	"strings"
	"testing"
)

func TestCanonicalURLStripsNoise(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "tracking params removed",
			in:   "https://Example.com/News/story/?utm_source=x&utm_medium=social&id=7",
			want: "https://example.com/News/story?id=7",
		},
		{
			name: "fragment removed",
			in:   "https://example.com/a#section",
			want: "https://example.com/a",
		},
		{
			name: "query sorted",
			in:   "https://example.com/a?b=2&a=1",
			want: "https://example.com/a?a=1&b=2",
		},
		{
			name: "trailing slash trimmed",
			in:   "https://example.com/a/b/",
			want: "https://example.com/a/b",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanonicalURL(tc.in); got != tc.want {
				t.Fatalf("CanonicalURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestHashURLStableAcrossVariants(t *testing.T) {
	a := HashURL("https://example.com/story?utm_source=feed")
	b := HashURL("https://EXAMPLE.com/story")
	if a != b {
		t.Fatalf("hashes differ for equivalent URLs: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected sha256 hex digest, got %d chars", len(a))
	}
	if HashURL("https://example.com/other") == a {
		t.Fatal("distinct URLs should hash differently")
	}
}

func TestTitleKeyFoldsAccentsAndPunctuation(t *testing.T) {
	a := TitleKey("Governo anuncia NOVO plano económico!")
	b := TitleKey("governo anuncia novo plano economico")
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
	if strings.ContainsAny(a, "!,.") {
		t.Fatalf("punctuation survived: %q", a)
	}
}

func TestOverlapDetectsSharedVocabulary(t *testing.T) {
	source := "O governo anunciou hoje um plano nacional para habitação acessível nas ilhas"
	faithful := "Plano nacional para habitação acessível anunciado pelo governo nas ilhas"
	unrelated := "Equipa vence campeonato regional de futebol depois de grande exibição"

	good := Overlap(source, faithful)
	if good.Shared < 5 {
		t.Fatalf("expected strong overlap, got %+v", good)
	}
	if good.Ratio <= 0.5 {
		t.Fatalf("expected high ratio, got %+v", good)
	}

	bad := Overlap(source, unrelated)
	if bad.Ratio >= good.Ratio {
		t.Fatalf("unrelated text should overlap less: %+v vs %+v", bad, good)
	}

	empty := Overlap("", faithful)
	if empty.Shared != 0 || empty.Ratio != 0 {
		t.Fatalf("empty reference should yield zero stats: %+v", empty)
	}
}

func TestCosineSimilarityOrdering(t *testing.T) {
	base := NewFingerprint("eleições legislativas marcadas para abril anunciou o presidente")
	near := NewFingerprint("presidente anunciou eleições legislativas para abril")
	far := NewFingerprint("tempestade tropical atinge costa norte da ilha")

	if got := CosineSimilarity(base, near); got <= CosineSimilarity(base, far) {
		t.Fatalf("similar text should score higher: close=%f far=%f", got, CosineSimilarity(base, far))
	}
	if got := CosineSimilarity(nil, base); got != 0 {
		t.Fatalf("nil fingerprint similarity = %f, want 0", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(`break/ing: story?`); got != "break-ing- story" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
	if got := SanitizeToken("Crónica: Eleições 2026"); got == "" || strings.ContainsAny(got, " :") {
		t.Fatalf("SanitizeToken = %q", got)
	}
}
