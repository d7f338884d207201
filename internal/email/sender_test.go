package email

import (
	"strings"
	"testing"
)

func TestRenderPropertyReview(t *testing.T) {
	subject, body, err := renderPropertyReview(PropertyReview{
		PropertyID:     "p-1",
		Address:        "12 Main St <Front Royal>",
		Reason:         "insertion cost above threshold",
		ZoneID:         "z1",
		InsertionMiles: "4.20",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if subject != "Property needs review: 12 Main St <Front Royal>" {
		t.Fatalf("unexpected subject %q", subject)
	}
	for _, want := range []string{"p-1", "insertion cost above threshold", "z1", "4.20", "&lt;Front Royal&gt;"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q", want)
		}
	}
}

func TestRenderPropertyReviewOmitsEmptyZone(t *testing.T) {
	_, body, err := renderPropertyReview(PropertyReview{PropertyID: "p-2", Address: "1 Elm", Reason: "no coordinates"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(body, "<strong>Zone</strong>") {
		t.Fatal("zone row rendered without a zone")
	}
}
