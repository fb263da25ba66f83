package pattern

import (
	"errors"
	"reflect"
	"testing"
)

func TestMatchPrefix(t *testing.T) {
	tests := []struct {
		pattern   string
		path      string
		wantMatch bool
		wantStrip string
	}{
		{"/images", "/images", true, ""},
		{"/images", "/images/", true, ""},
		{"/images", "/images/asdf", true, "/asdf"},
		{"/images", "/imageslkjasdlkjf", false, "/imageslkjasdlkjf"},
		{"/images", "/IMAGES/asdf", true, "/asdf"},
		{"/images", "/other", false, "/other"},
		{"/images/", "/images", true, ""},
		{"/images/", "/images/", true, ""},
		{"/images/", "/images/asdf", true, "/asdf"},
		{"/images/", "/imagesasdf", false, "/imagesasdf"},
		{"/a/b", "/a/b/c/d", true, "/c/d"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			p := MustCompile(tt.pattern, Options{})

			_, ok, err := p.Match(tt.path, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantMatch {
				t.Errorf("Match(%q) = %v, want %v", tt.path, ok, tt.wantMatch)
			}
			if got := p.Strip(tt.path); got != tt.wantStrip {
				t.Errorf("Strip(%q) = %q, want %q", tt.path, got, tt.wantStrip)
			}
		})
	}
}

func TestMatchSensitive(t *testing.T) {
	p := MustCompile("/images", Options{Sensitive: true})
	if _, ok, _ := p.Match("/IMAGES", nil); ok {
		t.Error("Expected case-sensitive pattern to reject /IMAGES")
	}
	if _, ok, _ := p.Match("/images", nil); !ok {
		t.Error("Expected /images to match")
	}
}

func TestMatchParams(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		opts    Options
		path    string
		want    map[string]string
	}{
		{"named", "/users/:id", Options{}, "/users/42/posts", map[string]string{"id": "42"}},
		{"two named", "/orgs/:org/users/:id", Options{End: true}, "/orgs/acme/users/7", map[string]string{"org": "acme", "id": "7"}},
		{"decoded", "/users/:id", Options{}, "/users/john%20doe", map[string]string{"id": "john doe"}},
		{"custom expr", `/items/:id(\d+)`, Options{End: true}, "/items/12", map[string]string{"id": "12"}},
		{"unnamed group", `/items/(\d+)`, Options{End: true}, "/items/12", map[string]string{"0": "12"}},
		{"asterisk", "/static/*", Options{End: true}, "/static/css/app.css", map[string]string{"0": "css/app.css"}},
		{"optional present", "/files/:name?", Options{End: true}, "/files/a", map[string]string{"name": "a"}},
		{"optional absent", "/files/:name?", Options{End: true}, "/files", map[string]string{}},
		{"one or more", "/files/:path+", Options{End: true}, "/files/a/b/c", map[string]string{"path": "a/b/c"}},
		{"zero or more", "/files/:path*", Options{End: true}, "/files", map[string]string{}},
		{"dot prefix", "/file.:ext", Options{End: true}, "/file.json", map[string]string{"ext": "json"}},
		{"empty capture", "/x/:rest(.*)", Options{End: true}, "/x/", map[string]string{}},
		{"escaped colon", `/a\:b`, Options{End: true}, "/a:b", map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.pattern, tt.opts)
			if err != nil {
				t.Fatalf("Compile(%q): %v", tt.pattern, err)
			}
			got, ok, err := p.Match(tt.path, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !ok {
				t.Fatalf("Expected %q to match %q (regexp %s)", tt.path, tt.pattern, p.Regexp())
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected params %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	p := MustCompile("/users/:id", Options{})

	rest, params, ok, err := p.Split("/users/42/posts", map[string]string{"org": "acme"})
	if err != nil || !ok {
		t.Fatalf("Expected match, got ok=%v err=%v", ok, err)
	}
	if rest != "/posts" {
		t.Errorf("Expected rest /posts, got %q", rest)
	}
	want := map[string]string{"org": "acme", "id": "42"}
	if !reflect.DeepEqual(params, want) {
		t.Errorf("Expected %v, got %v", want, params)
	}

	rest, _, ok, _ = p.Split("/other", nil)
	if ok || rest != "/other" {
		t.Errorf("Expected unchanged miss, got ok=%v rest=%q", ok, rest)
	}
}

func TestMatchRejects(t *testing.T) {
	tests := []struct {
		pattern string
		opts    Options
		path    string
	}{
		{`/items/:id(\d+)`, Options{End: true}, "/items/ab"},
		{"/users/:id", Options{End: true}, "/users/1/extra"},
		{"/users/:id", Options{}, "/users"},
		{"/files/:path+", Options{End: true}, "/files"},
		{"/a/", Options{Strict: true, End: true}, "/a"},
	}

	for _, tt := range tests {
		p := MustCompile(tt.pattern, tt.opts)
		if _, ok, _ := p.Match(tt.path, nil); ok {
			t.Errorf("Expected %q not to match %q", tt.path, tt.pattern)
		}
	}
}

func TestMatchMergesExistingParams(t *testing.T) {
	p := MustCompile("/users/:id", Options{})
	existing := map[string]string{"org": "acme", "id": "old"}

	got, ok, err := p.Match("/users/42", existing)
	if err != nil || !ok {
		t.Fatalf("Expected match, got ok=%v err=%v", ok, err)
	}

	want := map[string]string{"org": "acme", "id": "42"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if existing["id"] != "old" {
		t.Errorf("Expected the caller's map to be left alone, got id=%q", existing["id"])
	}
}

func TestMatchDecodeError(t *testing.T) {
	p := MustCompile("/users/:id", Options{})

	_, ok, err := p.Match("/users/%zz", nil)
	if ok {
		t.Error("Expected no match on decode failure")
	}
	if !errors.Is(err, ErrDecodeParam) {
		t.Errorf("Expected ErrDecodeParam, got %v", err)
	}
}

func TestKeys(t *testing.T) {
	p := MustCompile(`/a/:x/(\d+)/:y?`, Options{})
	want := []string{"x", "0", "y"}
	if got := p.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected keys %v, got %v", want, got)
	}
	if p.String() != `/a/:x/(\d+)/:y?` {
		t.Errorf("Expected source to be kept, got %q", p.String())
	}
}
