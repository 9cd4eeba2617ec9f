package handler

import (
	"github.com/aws/aws-lambda-go/events"

	"github.com/jun/gophboard/internal/auth"
	"github.com/jun/gophboard/internal/model"
)

// GetUserID extracts the user ID from the Authorization header or session cookie.
func GetUserID(req events.APIGatewayProxyRequest, jwtSecret string) (string, error) {
	user, err := auth.FromRequest(req, jwtSecret)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// GetUser resolves the full calling user, including display name and color.
func GetUser(req events.APIGatewayProxyRequest, jwtSecret string) (model.User, error) {
	return auth.FromRequest(req, jwtSecret)
}
