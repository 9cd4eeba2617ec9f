package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jun/gophboard/internal/handler"
	"github.com/jun/gophboard/internal/model"
	"github.com/jun/gophboard/internal/store"
)

const testUserID = "test-user-123"

func makeToken(userID string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
	})
	signed, _ := token.SignedString([]byte("test-secret"))
	return signed
}

func makeRequest(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Body:       body,
		Headers: map[string]string{
			"Authorization": "Bearer " + makeToken(testUserID),
			"Content-Type":  "application/json",
		},
		PathParameters:        map[string]string{},
		QueryStringParameters: map[string]string{},
	}
}

func TestObjectHandler_CreateAndList(t *testing.T) {
	objects := store.NewMemoryStore()
	h := handler.NewObjectHandler(objects, "test-secret")
	ctx := context.Background()

	createReq := makeRequest("POST", "/objects", `{"type":"rectangle","x":10,"y":20,"width":30,"height":40}`)
	resp, err := h.CreateObject(ctx, createReq)
	if err != nil {
		t.Fatalf("CreateObject returned error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", resp.StatusCode, resp.Body)
	}

	var created model.CanvasObject
	json.Unmarshal([]byte(resp.Body), &created)
	if created.ID == "" {
		t.Error("Created object has no ID")
	}
	if created.UpdatedBy != testUserID {
		t.Errorf("Expected updated_by '%s', got '%s'", testUserID, created.UpdatedBy)
	}
	if created.CanvasID != handler.DefaultCanvasID {
		t.Errorf("Expected default canvas, got '%s'", created.CanvasID)
	}

	listReq := makeRequest("GET", "/objects", "")
	resp, err = h.ListObjects(ctx, listReq)
	if err != nil {
		t.Fatalf("ListObjects returned error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}

	var listed []model.CanvasObject
	json.Unmarshal([]byte(resp.Body), &listed)
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Errorf("Expected the created object in the list, got %+v", listed)
	}
}

func TestObjectHandler_Create_UnknownTypeRejected(t *testing.T) {
	h := handler.NewObjectHandler(store.NewMemoryStore(), "test-secret")

	req := makeRequest("POST", "/objects", `{"type":"blob","x":1,"y":2}`)
	resp, _ := h.CreateObject(context.Background(), req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown type, got %d", resp.StatusCode)
	}
}

func TestObjectHandler_Create_DimensionsSanitized(t *testing.T) {
	h := handler.NewObjectHandler(store.NewMemoryStore(), "test-secret")

	req := makeRequest("POST", "/objects", `{"type":"rectangle","x":0,"y":0,"width":99999,"height":0}`)
	resp, err := h.CreateObject(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateObject returned error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", resp.StatusCode, resp.Body)
	}

	var created model.CanvasObject
	json.Unmarshal([]byte(resp.Body), &created)
	if created.Width != 10000 {
		t.Errorf("Expected width clamped to 10000, got %v", created.Width)
	}
	if created.Height != 1 {
		t.Errorf("Expected zero height clamped to 1, got %v", created.Height)
	}
}

func TestObjectHandler_Update(t *testing.T) {
	objects := store.NewMemoryStore()
	h := handler.NewObjectHandler(objects, "test-secret")
	ctx := context.Background()

	objects.CreateObject(ctx, &model.CanvasObject{
		ID: "obj1", CanvasID: handler.DefaultCanvasID, Type: model.ShapeRectangle,
		X: 0, Y: 0, Width: 50, Height: 50,
	})

	req := makeRequest("PUT", "/objects/obj1", `{"type":"rectangle","x":99,"y":0,"width":50,"height":50}`)
	req.PathParameters = map[string]string{"id": "obj1"}
	resp, err := h.UpdateObject(ctx, req)
	if err != nil {
		t.Fatalf("UpdateObject returned error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}

	stored, _ := objects.ListObjects(ctx, handler.DefaultCanvasID)
	if len(stored) != 1 || stored[0].X != 99 {
		t.Errorf("Update not persisted, got %+v", stored)
	}
	if stored[0].UpdatedBy != testUserID {
		t.Errorf("Expected updated_by '%s', got '%s'", testUserID, stored[0].UpdatedBy)
	}
}

func TestObjectHandler_Update_MissingID(t *testing.T) {
	h := handler.NewObjectHandler(store.NewMemoryStore(), "test-secret")

	req := makeRequest("PUT", "/objects/", `{"type":"rectangle"}`)
	resp, _ := h.UpdateObject(context.Background(), req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestObjectHandler_Delete(t *testing.T) {
	objects := store.NewMemoryStore()
	h := handler.NewObjectHandler(objects, "test-secret")
	ctx := context.Background()

	objects.CreateObject(ctx, &model.CanvasObject{
		ID: "obj1", CanvasID: handler.DefaultCanvasID, Type: model.ShapeRectangle,
	})

	req := makeRequest("DELETE", "/objects/obj1", "")
	req.PathParameters = map[string]string{"id": "obj1"}
	resp, err := h.DeleteObject(ctx, req)
	if err != nil {
		t.Fatalf("DeleteObject returned error: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode)
	}

	stored, _ := objects.ListObjects(ctx, handler.DefaultCanvasID)
	if len(stored) != 0 {
		t.Errorf("Object still present after delete: %+v", stored)
	}
}

func TestObjectHandler_Unauthorized(t *testing.T) {
	h := handler.NewObjectHandler(store.NewMemoryStore(), "test-secret")

	req := events.APIGatewayProxyRequest{
		Headers:               map[string]string{},
		QueryStringParameters: map[string]string{},
	}
	resp, _ := h.ListObjects(context.Background(), req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}
}
