package segment

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/japaniel/zhreader/pkg/lexicon"
)

func TestPreprocess(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"你好，世界", "你好 , 世界"},
		{"你 好\n世\t界", "你好世界"},
		{"我爱学习。", "我爱学习 。"},
		{"真的吗？是的！", "真的吗 ? 是的 !"},
		{"注意：第一；第二", "注意 : 第一 ; 第二"},
		{"Hello, world", "Hello , world"},
		{"你好　世界", "你好世界"},
	}
	for _, tc := range cases {
		if got := Preprocess(tc.in); got != tc.want {
			t.Errorf("Preprocess(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSegmentExamples(t *testing.T) {
	seg := New(lexicon.Default())

	cases := []struct {
		name string
		in   string
		want []Span
	}{
		{"empty", "", nil},
		{"ascii only", "hello world 123", nil},
		{"greeting with comma", Preprocess("你好，世界"), []Span{
			{Text: "你好", Start: 0, End: 2},
			{Text: "世界", Start: 5, End: 7},
		}},
		{"longest match wins", "计算机科学", []Span{{Text: "计算机科学", Start: 0, End: 5}}},
		{"finance compound", "基金投资", []Span{{Text: "基金投资", Start: 0, End: 4}}},
		{"unknown ideograph falls back to single rune", "你好鑫", []Span{
			{Text: "你好", Start: 0, End: 2},
			{Text: "鑫", Start: 2, End: 3},
		}},
		{"latin between words is skipped", "我ABC你", []Span{
			{Text: "我", Start: 0, End: 1},
			{Text: "你", Start: 4, End: 5},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := seg.Segment(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Segment(%q) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestSegmentGreetingWithoutLexiconWords(t *testing.T) {
	seg := New(lexicon.New(map[string]string{"我": "I, me"}))

	got := seg.Segment(Preprocess("你好，世界"))
	want := []Span{
		{Text: "你", Start: 0, End: 1},
		{Text: "好", Start: 1, End: 2},
		{Text: "世", Start: 5, End: 6},
		{Text: "界", Start: 6, End: 7},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Segment = %+v, want %+v", got, want)
	}
	if joined := strings.Join(Texts(got), ""); joined != "你好世界" {
		t.Errorf("joined spans = %q, want 你好世界", joined)
	}
}

func TestMaxKeyLenDerivedFromLexicon(t *testing.T) {
	lex := lexicon.New(map[string]string{
		"一二三四五六七": "seven chars",
		"AA制":     "Dutch treatment",
		"好":       "good",
	})
	seg := New(lex)
	if seg.MaxKeyLen() != 7 {
		t.Fatalf("expected max key length 7, got %d", seg.MaxKeyLen())
	}
	got := Texts(seg.Segment("一二三四五六七八"))
	want := []string{"一二三四五六七", "八"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	// Mixed-script keys are not segmentation candidates.
	if got := Texts(seg.Segment("AA制")); !reflect.DeepEqual(got, []string{"制"}) {
		t.Fatalf("expected only the ideograph, got %v", got)
	}
}

func TestSpansAreContiguousSubstrings(t *testing.T) {
	seg := New(lexicon.Default())
	text := Preprocess("今天我们去北京大学学习中文，然后去图书馆看书！Great.")
	runes := []rune(text)

	prevEnd := 0
	for _, sp := range seg.Segment(text) {
		if sp.Start < prevEnd {
			t.Fatalf("span %+v overlaps previous end %d", sp, prevEnd)
		}
		if sp.End-sp.Start != utf8.RuneCountInString(sp.Text) {
			t.Fatalf("span %+v length mismatch", sp)
		}
		if string(runes[sp.Start:sp.End]) != sp.Text {
			t.Fatalf("span %+v is not a substring of the input", sp)
		}
		prevEnd = sp.End
	}
}

// hanOnly keeps the ideographs of s, the subset the segmenter covers.
func hanOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if IsHan(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func randomText(r *rand.Rand, keys []string) string {
	var b strings.Builder
	n := 1 + r.Intn(20)
	for i := 0; i < n; i++ {
		switch r.Intn(4) {
		case 0:
			// arbitrary ideograph, possibly unknown
			b.WriteRune(rune(0x4E00 + r.Intn(0x9FFF-0x4E00+1)))
		case 1:
			b.WriteString([]string{"a", " ", "，", "1", "é", "😀"}[r.Intn(6)])
		default:
			b.WriteString(keys[r.Intn(len(keys))])
		}
	}
	return b.String()
}

func TestSegmentReconstructsHanSubset(t *testing.T) {
	lex := lexicon.Default()
	seg := New(lex)
	keys := lex.Keys()
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		text := randomText(r, keys)
		got := strings.Join(Texts(seg.Segment(text)), "")
		if want := hanOnly(text); got != want {
			t.Fatalf("reconstruction mismatch for %q: got %q want %q", text, got, want)
		}
	}
}

func TestSegmentIdempotentOnIdeographs(t *testing.T) {
	lex := lexicon.Default()
	seg := New(lex)
	keys := lex.Keys()
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		text := hanOnly(randomText(r, keys))
		first := Texts(seg.Segment(text))
		second := Texts(seg.Segment(strings.Join(first, "")))
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("segmentation not idempotent for %q: %v vs %v", text, first, second)
		}
	}
}

func TestSegmentKnownKeysOnly(t *testing.T) {
	lex := lexicon.Default()
	seg := New(lex)
	for _, k := range lex.Keys() {
		got := strings.Join(Texts(seg.Segment(k)), "")
		if got != k {
			t.Fatalf("segmenting key %q reconstructed %q", k, got)
		}
	}
}

func TestSegmentByCharacter(t *testing.T) {
	got := SegmentByCharacter("你好, 世界!")
	want := []Span{
		{Text: "你", Start: 0, End: 1},
		{Text: "好", Start: 1, End: 2},
		{Text: "世", Start: 4, End: 5},
		{Text: "界", Start: 5, End: 6},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestIsHan(t *testing.T) {
	for _, r := range []rune{'一', '你', '鿿'} {
		if !IsHan(r) {
			t.Errorf("IsHan(%q) = false", r)
		}
	}
	for _, r := range []rune{'a', '，', 'あ', '㐀', 0x4DFF, 0xA000} {
		if IsHan(r) {
			t.Errorf("IsHan(%q) = true", r)
		}
	}
}

func BenchmarkSegment(b *testing.B) {
	seg := New(lexicon.Default())
	text := Preprocess(strings.Repeat("今天我们在北京大学学习计算机科学和股票投资。", 50))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		seg.Segment(text)
	}
}
