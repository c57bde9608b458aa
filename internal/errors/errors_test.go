package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "tree defect",
			code:    "E201",
			wantMsg: "Duplicate list key",
			wantCat: CategoryTree,
		},
		{
			name:    "protocol error",
			code:    "E301",
			wantMsg: "Malformed batch",
			wantCat: CategoryProtocol,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	err := New("E201").AtPath("div/ul").WithDetail(`key "a" repeated`)
	want := `div/ul: E201: Duplicate list key: key "a" repeated`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestUnwrap(t *testing.T) {
	sentinel := stderrors.New("sentinel")
	err := New("E200").Wrap(sentinel)
	if !stderrors.Is(err, sentinel) {
		t.Error("errors.Is should see the wrapped sentinel")
	}

	var ve *Error
	if !stderrors.As(error(err), &ve) {
		t.Fatal("errors.As should find *Error")
	}
	if ve.Code != "E200" {
		t.Errorf("Code = %q, want E200", ve.Code)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E301") != nil {
		t.Error("FromError(nil) should be nil")
	}

	orig := New("E300")
	if FromError(orig, "E301") != orig {
		t.Error("FromError should pass *Error through unchanged")
	}

	wrapped := FromError(stderrors.New("boom"), "E301")
	if wrapped.Code != "E301" || wrapped.Wrapped == nil {
		t.Errorf("unexpected wrap result: %+v", wrapped)
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E201").AtPath("ul")
	if got := err.FormatCompact(); got != "ul: E201: Duplicate list key" {
		t.Errorf("FormatCompact() = %q", got)
	}
}

func TestFormatNoColors(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E200").AtPath("div").WithDetail("class twice").Wrap(stderrors.New("dup"))
	out := err.Format()
	for _, want := range []string{"ERROR E200: Duplicate attribute name", "div", "class twice", "caused by: dup", "Hint:", "Learn more:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() should not contain ANSI codes when colors are disabled")
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E400").AtPath("h3").Wrap(stderrors.New("missing"))

	var decoded map[string]string
	if e := json.Unmarshal([]byte(err.FormatJSON()), &decoded); e != nil {
		t.Fatalf("FormatJSON produced invalid JSON: %v", e)
	}
	if decoded["code"] != "E400" || decoded["path"] != "h3" || decoded["cause"] != "missing" {
		t.Errorf("unexpected JSON: %v", decoded)
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, stderrors.New("plain"))
	if !strings.Contains(buf.String(), "ERROR: plain") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestGetAllCodesSorted(t *testing.T) {
	codes := GetAllCodes()
	for i := 1; i < len(codes); i++ {
		if codes[i-1] > codes[i] {
			t.Fatalf("codes not sorted: %v", codes)
		}
	}
	if _, ok := GetTemplate("E201"); !ok {
		t.Error("E201 should be registered")
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five", 9)
	if len(lines) != 3 {
		t.Errorf("wrapText returned %v", lines)
	}
}
