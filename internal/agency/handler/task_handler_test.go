package handler

import (
	"net/http"
	"testing"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/testutil"
)

func activityKinds(task map[string]interface{}) []string {
	items, _ := task["activities"].([]interface{})
	kinds := make([]string, 0, len(items))
	for _, it := range items {
		a, _ := it.(map[string]interface{})
		kinds = append(kinds, a["kind"].(string))
	}
	return kinds
}

func lastActivity(t *testing.T, task map[string]interface{}) map[string]interface{} {
	t.Helper()
	items, _ := task["activities"].([]interface{})
	if len(items) == 0 {
		t.Fatal("Expected task activities")
	}
	return items[len(items)-1].(map[string]interface{})
}

func createTask(t *testing.T, srv *testServer, token string, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	w := testutil.DoRequest(srv.Router, "POST", "/api/tasks", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return testutil.Data(w)
}

func TestCreateTask(t *testing.T) {
	srv := newTestServer(t)
	manager := testutil.SeedUser(t, srv.DB, "mgr-1", entity.RoleManager)
	customer := testutil.SeedUser(t, srv.DB, "cust-1", entity.RoleCustomer)
	testutil.SeedProject(t, srv.DB, "proj-1", customer.ID, nil)

	task := createTask(t, srv, testutil.Token(manager), map[string]interface{}{
		"projectId":    "proj-1",
		"title":        "  Write landing copy ",
		"progress":     150,
		"assignedToId": "spec-1",
		"priority":     "high",
		"dueDate":      "2024-05-10",
	})
	if task["title"] != "Write landing copy" {
		t.Errorf("Expected trimmed title, got %v", task["title"])
	}
	if task["progress"] != float64(100) {
		t.Errorf("Expected progress clamped to 100, got %v", task["progress"])
	}
	if task["status"] != entity.TaskStatusTodo || task["priority"] != "high" {
		t.Errorf("Unexpected status/priority: %v %v", task["status"], task["priority"])
	}
	kinds := activityKinds(task)
	if len(kinds) != 2 || kinds[0] != "created" || kinds[1] != "assigned" {
		t.Errorf("Expected created and assigned activities, got %v", kinds)
	}

	w := testutil.DoRequest(srv.Router, "POST", "/api/tasks", map[string]interface{}{"projectId": "proj-1", "progress": -5, "title": "Negative"}, testutil.Token(manager))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if p := testutil.Data(w)["progress"]; p != float64(0) {
		t.Errorf("Expected progress clamped to 0, got %v", p)
	}

	w = testutil.DoRequest(srv.Router, "POST", "/api/tasks", map[string]interface{}{"projectId": "proj-1"}, testutil.Token(manager))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without title, got %d", w.Code)
	}
}

func TestCustomerCannotCreateOrDeleteTask(t *testing.T) {
	srv := newTestServer(t)
	manager := testutil.SeedUser(t, srv.DB, "mgr-1", entity.RoleManager)
	customer := testutil.SeedUser(t, srv.DB, "cust-1", entity.RoleCustomer)
	testutil.SeedProject(t, srv.DB, "proj-1", customer.ID, nil)

	w := testutil.DoRequest(srv.Router, "POST", "/api/tasks", map[string]interface{}{"projectId": "proj-1", "title": "Sneaky"}, testutil.Token(customer))
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 on create, got %d: %s", w.Code, w.Body.String())
	}

	task := createTask(t, srv, testutil.Token(manager), map[string]interface{}{"projectId": "proj-1", "title": "Keep me"})
	id := task["id"].(string)

	w = testutil.DoRequest(srv.Router, "DELETE", "/api/tasks/"+id, nil, testutil.Token(customer))
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 on delete, got %d: %s", w.Code, w.Body.String())
	}
	w = testutil.DoRequest(srv.Router, "PATCH", "/api/tasks/"+id, map[string]interface{}{"title": "Mine now"}, testutil.Token(customer))
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 on update, got %d: %s", w.Code, w.Body.String())
	}

	// the customer still reads tasks of their own project
	w = testutil.DoRequest(srv.Router, "GET", "/api/tasks/"+id, nil, testutil.Token(customer))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on get, got %d", w.Code)
	}

	w = testutil.DoRequest(srv.Router, "DELETE", "/api/tasks/"+id, nil, testutil.Token(manager))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on delete, got %d: %s", w.Code, w.Body.String())
	}
	w = testutil.DoRequest(srv.Router, "GET", "/api/tasks/"+id, nil, testutil.Token(manager))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
}

func TestUpdateTaskStatusAndAssignee(t *testing.T) {
	srv := newTestServer(t)
	manager := testutil.SeedUser(t, srv.DB, "mgr-1", entity.RoleManager)
	customer := testutil.SeedUser(t, srv.DB, "cust-1", entity.RoleCustomer)
	testutil.SeedProject(t, srv.DB, "proj-1", customer.ID, nil)
	token := testutil.Token(manager)

	task := createTask(t, srv, token, map[string]interface{}{"projectId": "proj-1", "title": "Design mockups", "assignedToId": "spec-1", "progress": 30})
	id := task["id"].(string)

	w := testutil.DoRequest(srv.Router, "PATCH", "/api/tasks/"+id, map[string]interface{}{"status": "completed"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	task = testutil.Data(w)
	if task["progress"] != float64(100) {
		t.Errorf("Expected completed task at 100%%, got %v", task["progress"])
	}
	if task["completed_at"] == nil {
		t.Error("Expected completed_at to be set")
	}
	a := lastActivity(t, task)
	if a["kind"] != "status" || a["from"] != "todo" || a["to"] != "completed" {
		t.Errorf("Unexpected status activity: %v", a)
	}

	w = testutil.DoRequest(srv.Router, "PATCH", "/api/tasks/"+id, map[string]interface{}{"status": "in_progress"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if testutil.Data(w)["completed_at"] != nil {
		t.Error("Expected completed_at cleared on reopen")
	}

	w = testutil.DoRequest(srv.Router, "PATCH", "/api/tasks/"+id, map[string]interface{}{"assignedToId": "spec-2"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	task = testutil.Data(w)
	a = lastActivity(t, task)
	if a["kind"] != "assigned" || a["from"] != "spec-1" || a["to"] != "spec-2" {
		t.Errorf("Unexpected assignee activity: %v", a)
	}
	if task["assigned_to_id"] != "spec-2" {
		t.Errorf("Expected reassignment, got %v", task["assigned_to_id"])
	}

	// same values do not add activities
	before := len(activityKinds(task))
	w = testutil.DoRequest(srv.Router, "PATCH", "/api/tasks/"+id, map[string]interface{}{"assignedToId": "spec-2", "status": "in_progress"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if after := len(activityKinds(testutil.Data(w))); after != before {
		t.Errorf("Expected no new activities, got %d -> %d", before, after)
	}

	w = testutil.DoRequest(srv.Router, "PATCH", "/api/tasks/"+id, map[string]interface{}{"status": "archived"}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown status, got %d", w.Code)
	}
}

func TestTaskComments(t *testing.T) {
	srv := newTestServer(t)
	manager := testutil.SeedUser(t, srv.DB, "mgr-1", entity.RoleManager)
	customer := testutil.SeedUser(t, srv.DB, "cust-1", entity.RoleCustomer)
	stranger := testutil.SeedUser(t, srv.DB, "cust-2", entity.RoleCustomer)
	testutil.SeedProject(t, srv.DB, "proj-1", customer.ID, nil)

	task := createTask(t, srv, testutil.Token(manager), map[string]interface{}{"projectId": "proj-1", "title": "Review texts"})
	id := task["id"].(string)

	w := testutil.DoRequest(srv.Router, "POST", "/api/tasks/"+id+"/comments", map[string]string{"content": " Looks good "}, testutil.Token(customer))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	task = testutil.Data(w)
	comments, _ := task["comments"].([]interface{})
	if len(comments) != 1 {
		t.Fatalf("Expected one comment, got %v", task["comments"])
	}
	c := comments[0].(map[string]interface{})
	if c["content"] != "Looks good" || c["authorId"] != customer.ID {
		t.Errorf("Unexpected comment: %v", c)
	}
	if a := lastActivity(t, task); a["kind"] != "comment" {
		t.Errorf("Expected comment activity, got %v", a)
	}

	w = testutil.DoRequest(srv.Router, "POST", "/api/tasks/"+id+"/comments", map[string]string{"content": "hi"}, testutil.Token(stranger))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a stranger, got %d", w.Code)
	}
	w = testutil.DoRequest(srv.Router, "POST", "/api/tasks/"+id+"/comments", map[string]string{"content": ""}, testutil.Token(customer))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty comment, got %d", w.Code)
	}
}
