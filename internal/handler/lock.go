package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jun/gophboard/internal/lock"
)

// LockHandler handles object lock requests.
type LockHandler struct {
	locks     lock.Store
	jwtSecret string
}

// NewLockHandler creates a new LockHandler.
func NewLockHandler(locks lock.Store, jwtSecret string) *LockHandler {
	return &LockHandler{locks: locks, jwtSecret: jwtSecret}
}

// AcquireLock claims the object for the calling user. Contention is a 409,
// not an error: the client shows the object as held and moves on.
func (h *LockHandler) AcquireLock(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized, Body: "Unauthorized"}, nil
	}

	objectID := req.PathParameters["objectId"]
	if objectID == "" {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Missing object ID"}, nil
	}

	lease, ok, err := h.locks.TryAcquire(ctx, objectID, userID)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Failed to acquire lock"}, nil
	}
	if !ok {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusConflict, Body: "Object is locked by another user"}, nil
	}

	body, _ := json.Marshal(lease)
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

// Heartbeat renews the calling user's lease on the object.
func (h *LockHandler) Heartbeat(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized, Body: "Unauthorized"}, nil
	}

	objectID := req.PathParameters["objectId"]
	if objectID == "" {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Missing object ID"}, nil
	}

	lease, ok, err := h.locks.Renew(ctx, objectID, userID)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Failed to renew lock"}, nil
	}
	if !ok {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNotFound, Body: "Lock not found or expired"}, nil
	}

	body, _ := json.Marshal(lease)
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

// ReleaseLock clears the calling user's lease. Releasing an object the user
// does not hold is a no-op and still succeeds.
func (h *LockHandler) ReleaseLock(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized, Body: "Unauthorized"}, nil
	}

	objectID := req.PathParameters["objectId"]
	if objectID == "" {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Missing object ID"}, nil
	}

	if err := h.locks.Release(ctx, objectID, userID); err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Failed to release lock"}, nil
	}

	return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}, nil
}
