package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/jun/gophboard/internal/model"
	"github.com/jun/gophboard/internal/store"
	"github.com/jun/gophboard/internal/sync"
)

// DefaultCanvasID is used when a request does not name a canvas.
const DefaultCanvasID = "default"

// ObjectHandler handles CRUD operations for canvas objects.
type ObjectHandler struct {
	objects   store.ObjectStore
	jwtSecret string
}

// NewObjectHandler creates a new ObjectHandler.
func NewObjectHandler(objects store.ObjectStore, jwtSecret string) *ObjectHandler {
	return &ObjectHandler{objects: objects, jwtSecret: jwtSecret}
}

// ListObjects lists all objects on the requested canvas. Records that fail
// to decode are dropped from the response rather than failing the whole
// list.
func (h *ObjectHandler) ListObjects(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetUserID(req, h.jwtSecret); err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized, Body: "Unauthorized"}, nil
	}

	canvasID := req.QueryStringParameters["canvasId"]
	if canvasID == "" {
		canvasID = DefaultCanvasID
	}

	objects, err := h.objects.ListObjects(ctx, canvasID)
	if err != nil {
		fmt.Printf("ListObjects error: %v\n", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Failed to list objects"}, nil
	}

	sane := make([]model.CanvasObject, 0, len(objects))
	for _, obj := range objects {
		if decoded, ok := sync.Decode(obj); ok {
			sane = append(sane, decoded)
		}
	}

	body, _ := json.Marshal(sane)
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

// CreateObject creates a new canvas object.
func (h *ObjectHandler) CreateObject(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized, Body: "Unauthorized"}, nil
	}

	var input model.CanvasObject
	if err := json.Unmarshal([]byte(req.Body), &input); err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Invalid request body"}, nil
	}

	obj, ok := sync.Decode(input)
	if !ok {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Unknown object type"}, nil
	}
	if obj.ID == "" {
		obj.ID = uuid.NewString()
	}
	if obj.CanvasID == "" {
		obj.CanvasID = DefaultCanvasID
	}
	obj.UpdatedBy = userID
	obj.UpdatedAt = time.Now()

	if err := h.objects.CreateObject(ctx, &obj); err != nil {
		fmt.Printf("CreateObject error: %v\n", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Failed to create object"}, nil
	}

	body, _ := json.Marshal(obj)
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusCreated,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

// UpdateObject upserts the full object record. The store is last-writer-wins;
// lock discipline is the client's responsibility and the lock endpoints are
// where it is enforced.
func (h *ObjectHandler) UpdateObject(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized, Body: "Unauthorized"}, nil
	}

	id := req.PathParameters["id"]
	if id == "" {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Missing object ID"}, nil
	}

	var input model.CanvasObject
	if err := json.Unmarshal([]byte(req.Body), &input); err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Invalid request body"}, nil
	}

	obj, ok := sync.Decode(input)
	if !ok {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Unknown object type"}, nil
	}
	obj.ID = id
	if obj.CanvasID == "" {
		obj.CanvasID = DefaultCanvasID
	}
	obj.UpdatedBy = userID
	obj.UpdatedAt = time.Now()

	if err := h.objects.UpdateObject(ctx, &obj); err != nil {
		fmt.Printf("UpdateObject error: %v\n", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Failed to update object"}, nil
	}

	body, _ := json.Marshal(obj)
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

// DeleteObject deletes a canvas object. Deleting a missing object succeeds.
func (h *ObjectHandler) DeleteObject(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetUserID(req, h.jwtSecret); err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized, Body: "Unauthorized"}, nil
	}

	id := req.PathParameters["id"]
	if id == "" {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Missing object ID"}, nil
	}

	if err := h.objects.DeleteObject(ctx, id); err != nil {
		fmt.Printf("DeleteObject error: %v\n", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Failed to delete object"}, nil
	}

	return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}, nil
}
