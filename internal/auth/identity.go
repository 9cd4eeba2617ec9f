package auth

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jun/gophboard/internal/model"
)

// palette holds the cursor/selection colors assigned to users. A user's
// color is a pure function of their id so every client renders the same
// person with the same color without coordination.
var palette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#fabebe",
	"#008080", "#e6beff", "#9a6324", "#800000", "#aaffc3",
}

// ColorFor returns the display color for a user id.
func ColorFor(userID string) string {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return palette[h.Sum32()%uint32(len(palette))]
}

// TokenFromRequest pulls the session token out of the Authorization header
// (Bearer <token>) or, failing that, the session_token cookie. Returns ""
// when neither is present.
func TokenFromRequest(req events.APIGatewayProxyRequest) string {
	getHeader := func(name string) string {
		for k, v := range req.Headers {
			if strings.EqualFold(k, name) {
				return v
			}
		}
		return ""
	}

	if authHeader := getHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Cookie format: session_token=xxx; ...
	for _, part := range strings.Split(getHeader("Cookie"), ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "session_token=") {
			return strings.TrimPrefix(part, "session_token=")
		}
	}
	return ""
}

// Parse verifies an HMAC-signed session token and returns the user behind
// it. The "sub" claim is required; "name" is optional and falls back to the
// id.
func Parse(tokenString, jwtSecret string) (model.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return model.User{}, fmt.Errorf("invalid token: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return model.User{}, fmt.Errorf("invalid token claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return model.User{}, fmt.Errorf("invalid token claims")
	}

	user := model.User{ID: sub, Name: sub, Color: ColorFor(sub)}
	if name, ok := claims["name"].(string); ok && name != "" {
		user.Name = name
	}
	return user, nil
}

// FromRequest resolves the calling user from an API Gateway request.
func FromRequest(req events.APIGatewayProxyRequest, jwtSecret string) (model.User, error) {
	tokenString := TokenFromRequest(req)
	if tokenString == "" {
		return model.User{}, fmt.Errorf("no authorization token found")
	}
	return Parse(tokenString, jwtSecret)
}
