package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/testutil"
	"github.com/braincreator/flow-masters/internal/shared/events"
)

func TestApplyTemplateSchedulesMilestones(t *testing.T) {
	srv := newTestServer(t)
	manager := testutil.SeedUser(t, srv.DB, "mgr-1", entity.RoleManager)
	customer := testutil.SeedUser(t, srv.DB, "cust-1", entity.RoleCustomer)
	testutil.SeedProject(t, srv.DB, "proj-1", customer.ID, nil)

	first := 1
	tmpl := &entity.ProjectTemplate{
		ID:       "tpl-1",
		Name:     "Website launch",
		IsActive: true,
		Milestones: []entity.TemplateMilestone{
			{ID: "tm-a", Title: "A", Order: 1, DurationValue: 2, DurationUnit: entity.DurationDays},
			{ID: "tm-b", Title: "B", Order: 2, DurationValue: 3, DurationUnit: entity.DurationDays,
				DependsOn: []entity.MilestoneDependency{{MilestoneOrder: 1, OffsetDays: 1}}},
		},
		Tasks: []entity.TemplateTask{
			{ID: "tt-1", Title: "Kickoff call", RelatedMilestoneOrder: &first, AssigneeRole: "pm"},
		},
	}
	if err := srv.DB.Create(tmpl).Error; err != nil {
		t.Fatalf("Failed to seed template: %v", err)
	}

	body := map[string]interface{}{
		"templateId":      "tpl-1",
		"projectId":       "proj-1",
		"startDate":       "2024-01-01",
		"roleAssignments": map[string]string{"pm": manager.ID},
	}
	w := testutil.DoRequest(srv.Router, "POST", "/api/project-templates/apply", body, testutil.Token(manager))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	data := testutil.Data(w)
	milestones := data["milestones"].([]interface{})
	if len(milestones) != 2 {
		t.Fatalf("Expected 2 milestones, got %d", len(milestones))
	}
	due := map[string]string{}
	for _, raw := range milestones {
		m := raw.(map[string]interface{})
		due[m["title"].(string)] = m["due_date"].(string)
	}
	if !strings.HasPrefix(due["A"], "2024-01-03") {
		t.Errorf("Expected A due 2024-01-03, got %s", due["A"])
	}
	if !strings.HasPrefix(due["B"], "2024-01-07") {
		t.Errorf("Expected B due 2024-01-07, got %s", due["B"])
	}

	tasks := data["tasks"].([]interface{})
	if len(tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(tasks))
	}
	task := tasks[0].(map[string]interface{})
	if !strings.HasPrefix(task["due_date"].(string), "2024-01-03") {
		t.Errorf("Expected task due with milestone A, got %v", task["due_date"])
	}
	if task["assigned_to_id"] != manager.ID {
		t.Errorf("Expected task assigned to %s, got %v", manager.ID, task["assigned_to_id"])
	}

	var project entity.ServiceProject
	srv.DB.First(&project, "id = ?", "proj-1")
	if project.AppliedTemplateID == nil || *project.AppliedTemplateID != "tpl-1" {
		t.Errorf("Expected project to record applied template, got %v", project.AppliedTemplateID)
	}
	if !srv.published(events.TemplateApplied) {
		t.Errorf("Expected %s event, got %v", events.TemplateApplied, srv.Events.Keys())
	}

	// A project takes one template only
	w = testutil.DoRequest(srv.Router, "POST", "/api/project-templates/apply", body, testutil.Token(manager))
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 on second apply, got %d: %s", w.Code, w.Body.String())
	}
}

func TestApplyTemplateForbiddenForCustomer(t *testing.T) {
	srv := newTestServer(t)
	customer := testutil.SeedUser(t, srv.DB, "cust-1", entity.RoleCustomer)
	testutil.SeedProject(t, srv.DB, "proj-1", customer.ID, nil)

	w := testutil.DoRequest(srv.Router, "POST", "/api/project-templates/apply",
		map[string]interface{}{"templateId": "tpl-1", "projectId": "proj-1"}, testutil.Token(customer))
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateProjectStatus(t *testing.T) {
	srv := newTestServer(t)
	manager := testutil.SeedUser(t, srv.DB, "mgr-1", entity.RoleManager)
	customer := testutil.SeedUser(t, srv.DB, "cust-1", entity.RoleCustomer)
	testutil.SeedProject(t, srv.DB, "proj-1", customer.ID, nil)

	w := testutil.DoRequest(srv.Router, "PATCH", "/api/service-projects/proj-1",
		map[string]string{"status": entity.ProjectStatusInProgress}, testutil.Token(customer))
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for customer, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(srv.Router, "PATCH", "/api/service-projects/proj-1",
		map[string]string{"status": "archived"}, testutil.Token(manager))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for unknown status, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(srv.Router, "PATCH", "/api/service-projects/proj-1",
		map[string]string{"status": entity.ProjectStatusCompleted}, testutil.Token(manager))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.Data(w)
	if data["status"] != entity.ProjectStatusCompleted {
		t.Errorf("Expected status completed, got %v", data["status"])
	}
	if data["completed_at"] == nil {
		t.Error("Expected completed_at to be stamped")
	}
	if !srv.published(events.ProjectStatusChanged) {
		t.Errorf("Expected %s event, got %v", events.ProjectStatusChanged, srv.Events.Keys())
	}
}

func TestMilestoneReopenClearsCompletedAt(t *testing.T) {
	srv := newTestServer(t)
	manager := testutil.SeedUser(t, srv.DB, "mgr-1", entity.RoleManager)
	customer := testutil.SeedUser(t, srv.DB, "cust-1", entity.RoleCustomer)
	testutil.SeedProject(t, srv.DB, "proj-1", customer.ID, nil)
	testutil.SeedMilestone(t, srv.DB, "ms-1", "proj-1", 1, false)
	token := testutil.Token(manager)

	w := testutil.DoRequest(srv.Router, "PATCH", "/api/project-milestones/ms-1",
		map[string]string{"status": entity.MilestoneStatusCompleted}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if testutil.Data(w)["completed_at"] == nil {
		t.Fatal("Expected completed_at to be stamped")
	}

	w = testutil.DoRequest(srv.Router, "PATCH", "/api/project-milestones/ms-1",
		map[string]string{"status": entity.MilestoneStatusInProgress}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := testutil.Data(w)["completed_at"]; got != nil {
		t.Errorf("Expected completed_at cleared, got %v", got)
	}

	var m entity.ProjectMilestone
	srv.DB.First(&m, "id = ?", "ms-1")
	if m.CompletedAt != nil {
		t.Errorf("Expected stored completed_at cleared, got %v", m.CompletedAt)
	}
}

func TestProjectVisibility(t *testing.T) {
	srv := newTestServer(t)
	owner := testutil.SeedUser(t, srv.DB, "cust-1", entity.RoleCustomer)
	other := testutil.SeedUser(t, srv.DB, "cust-2", entity.RoleCustomer)
	testutil.SeedProject(t, srv.DB, "proj-1", owner.ID, nil)

	w := testutil.DoRequest(srv.Router, "GET", "/api/service-projects/proj-1", nil, testutil.Token(owner))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for owner, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(srv.Router, "GET", "/api/service-projects/proj-1", nil, testutil.Token(other))
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for another customer, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMilestoneApprovalKeepsOneFeedback(t *testing.T) {
	srv := newTestServer(t)
	customer := testutil.SeedUser(t, srv.DB, "cust-1", entity.RoleCustomer)
	testutil.SeedProject(t, srv.DB, "proj-1", customer.ID, nil)
	testutil.SeedMilestone(t, srv.DB, "ms-1", "proj-1", 1, true)
	testutil.SeedMilestone(t, srv.DB, "ms-2", "proj-1", 2, false)
	token := testutil.Token(customer)

	w := testutil.DoRequest(srv.Router, "POST", "/api/project-milestones/ms-1/approve",
		map[string]interface{}{"approved": true, "feedback": "Great work", "satisfactionRating": 5}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if data := testutil.Data(w); data["client_approved"] != true {
		t.Errorf("Expected client_approved true, got %v", data["client_approved"])
	}

	w = testutil.DoRequest(srv.Router, "POST", "/api/project-milestones/ms-1/approve",
		map[string]interface{}{"approved": true, "feedback": "Still great", "satisfactionRating": 4}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on repeat, got %d: %s", w.Code, w.Body.String())
	}

	var feedback []entity.ProjectFeedback
	srv.DB.Where("milestone_id = ?", "ms-1").Find(&feedback)
	if len(feedback) != 1 {
		t.Fatalf("Expected exactly 1 feedback row, got %d", len(feedback))
	}
	if feedback[0].Rating != 4 || feedback[0].Comment != "Still great" {
		t.Errorf("Expected feedback updated to 4/Still great, got %d/%s", feedback[0].Rating, feedback[0].Comment)
	}

	w = testutil.DoRequest(srv.Router, "POST", "/api/project-milestones/ms-2/approve",
		map[string]interface{}{"approved": true}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for milestone without approval, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(srv.Router, "POST", "/api/project-milestones/ms-1/approve",
		map[string]interface{}{"approved": true, "satisfactionRating": 9}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for rating out of range, got %d: %s", w.Code, w.Body.String())
	}
}

func TestInternalMessagesHiddenFromCustomer(t *testing.T) {
	srv := newTestServer(t)
	manager := testutil.SeedUser(t, srv.DB, "mgr-1", entity.RoleManager)
	customer := testutil.SeedUser(t, srv.DB, "cust-1", entity.RoleCustomer)
	testutil.SeedProject(t, srv.DB, "proj-1", customer.ID, nil)

	testutil.DoRequest(srv.Router, "POST", "/api/service-projects/proj-1/messages",
		map[string]interface{}{"content": "Kickoff tomorrow"}, testutil.Token(manager))
	testutil.DoRequest(srv.Router, "POST", "/api/service-projects/proj-1/messages",
		map[string]interface{}{"content": "Budget is tight", "isInternal": true}, testutil.Token(manager))

	w := testutil.DoRequest(srv.Router, "GET", "/api/service-projects/proj-1/messages", nil, testutil.Token(customer))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	items := testutil.Data(w)["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("Expected 1 visible message, got %d", len(items))
	}

	w = testutil.DoRequest(srv.Router, "GET", "/api/service-projects/proj-1/messages", nil, testutil.Token(manager))
	if items := testutil.Data(w)["items"].([]interface{}); len(items) != 2 {
		t.Errorf("Expected staff to see 2 messages, got %d", len(items))
	}
}
