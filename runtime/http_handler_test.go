package runtime

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Jeffail/gabs/v2"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	invalid := siteBuild()
	invalid.Tasks[0].Args = map[string]any{"out": "/build/greeting.txt"}
	app := newTestApp(t, afero.NewMemMapFs(), memLoader{
		"site.build":    siteBuild(),
		"invalid.build": invalid,
	})

	guard := func(path string) (string, error) {
		if strings.Contains(path, "..") {
			return "", errors.New("path escapes the workspace")
		}
		return path, nil
	}

	g := gin.New()
	NewHttpHandler(app, guard, g)
	return g
}

func serve(g *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestHttpHandler_ListTypes(t *testing.T) {
	w := serve(newTestRouter(t), http.MethodGet, "/types", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	doc, err := gabs.ParseJSON(w.Body.Bytes())
	if err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	types := doc.Path("types").Children()
	if len(types) != 2 || types[0].Data() != "tools.concat" {
		t.Errorf("Expected [tools.concat tools.greet], got %s", doc.Path("types").String())
	}
}

func TestHttpHandler_DescribeType(t *testing.T) {
	g := newTestRouter(t)

	w := serve(g, http.MethodGet, "/types/tools.concat", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	doc, err := gabs.ParseJSON(w.Body.Bytes())
	if err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if doc.Path("incremental").Data() != true || doc.Path("cacheable").Data() != false {
		t.Errorf("Unexpected flags: %s", doc.String())
	}
	actions := doc.Path("actions").Children()
	if len(actions) != 1 || actions[0].Path("name").Data() != "Concat" {
		t.Errorf("Unexpected actions: %s", doc.Path("actions").String())
	}
	properties := doc.Path("properties").Children()
	if len(properties) != 3 {
		t.Fatalf("Expected 3 properties, got %s", doc.Path("properties").String())
	}
	if properties[0].Path("name").Data() != "sources" || properties[0].Path("kind").Data() != KindInputFiles {
		t.Errorf("Unexpected first property: %s", properties[0].String())
	}
	if properties[1].Path("optional").Data() != true {
		t.Errorf("Expected separator to be optional: %s", properties[1].String())
	}

	if w := serve(g, http.MethodGet, "/types/tools.missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown type, got %d", w.Code)
	}
}

func TestHttpHandler_Validate(t *testing.T) {
	g := newTestRouter(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
	}{
		{"valid build", `{"build": "site.build"}`, http.StatusOK, `"valid":true`},
		{"invalid build", `{"build": "invalid.build"}`, http.StatusOK, `No value has been specified for property 'name'.`},
		{"missing field", `{}`, http.StatusBadRequest, "Wrong request body format"},
		{"guarded path", `{"build": "../etc/site.build"}`, http.StatusForbidden, "escapes the workspace"},
		{"unknown build", `{"build": "other.build"}`, http.StatusUnprocessableEntity, "no build at other.build"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(g, http.MethodPost, "/validate", tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("Expected body containing %q, got %s", tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestDescribeValidation(t *testing.T) {
	doc := DescribeValidation(map[string]ValidationMessages{
		"greet":  {"No value has been specified for property 'name'."},
		"bundle": nil,
	})
	if doc.Path("valid").Data() != false {
		t.Errorf("Expected valid=false, got %s", doc.String())
	}
	if len(doc.Search("tasks", "greet").Children()) != 1 {
		t.Errorf("Expected one message for greet, got %s", doc.String())
	}
	if len(doc.Search("tasks", "bundle").Children()) != 0 {
		t.Errorf("Expected no messages for bundle, got %s", doc.String())
	}

	empty := DescribeValidation(nil)
	if empty.Path("valid").Data() != true || !empty.Exists("tasks") {
		t.Errorf("Expected an empty valid report, got %s", empty.String())
	}
}
