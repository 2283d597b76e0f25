package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/openraise/escrow-backend/internal/apperr"
)

func TestProjectIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		raw     string
		wantID  int64
		wantErr bool
	}{
		{"assigned id", "7", 7, false},
		{"zero flows through for the service's not-found mapping", "0", 0, false},
		{"negative flows through as well", "-3", -3, false},
		{"unparseable", "abc", 0, true},
		{"empty", "", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Params = gin.Params{{Key: "id", Value: tc.raw}}

			id, err := projectIDParam(c)
			if tc.wantErr {
				if !apperr.IsKind(err, apperr.KindValidation) {
					t.Fatalf("err = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if id != tc.wantID {
				t.Fatalf("id = %d, want %d", id, tc.wantID)
			}
		})
	}
}
