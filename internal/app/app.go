package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/jun/gophboard/internal/handler"
	"github.com/jun/gophboard/internal/lock"
	"github.com/jun/gophboard/internal/secret"
	"github.com/jun/gophboard/internal/store"
)

// App holds the dependencies for the Lambda function.
type App struct {
	objectHandler    *handler.ObjectHandler
	lockHandler      *handler.LockHandler
	apiGatewaySecret string
}

// NewApp initializes the application dependencies.
func NewApp(ctx context.Context) *App {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		panic(fmt.Sprintf("unable to load SDK config, %v", err))
	}

	devMode := os.Getenv("DEV_MODE") == "true"

	// ---------- Secret Resolver ----------
	var resolver secret.Resolver
	if devMode {
		resolver = secret.NewEnvResolver()
		fmt.Println("Using EnvResolver (DEV_MODE=true)")
	} else {
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(cfg))
		fmt.Println("Using SSMResolver (SSM Parameter Store)")
	}

	jwtSecretParam := os.Getenv("JWT_SECRET_PARAM")
	if jwtSecretParam == "" {
		jwtSecretParam = "/gophboard/jwt-secret"
	}
	jwtSecret, err := resolver.GetSecret(ctx, jwtSecretParam)
	if err != nil {
		log.Printf("WARNING: failed to resolve JWT_SECRET: %v", err)
		jwtSecret = "default-dev-secret"
	}

	apiGatewaySecretParam := os.Getenv("API_GATEWAY_SECRET_PARAM")
	if apiGatewaySecretParam == "" {
		apiGatewaySecretParam = "/gophboard/api-gateway-secret"
	}
	apiGatewaySecret, err := resolver.GetSecret(ctx, apiGatewaySecretParam)
	if err != nil {
		log.Printf("WARNING: failed to resolve API_GATEWAY_SECRET: %v", err)
	}

	// ---------- Storage ----------
	objectsTable := os.Getenv("OBJECTS_TABLE")
	if objectsTable == "" {
		objectsTable = "CanvasObjects"
	}

	var objects store.ObjectStore
	var locks lock.Store
	if devMode {
		// In-memory stores: single-process, no persistence across restarts.
		objects = store.NewMemoryStore()
		locks = lock.NewMemoryStore()
		fmt.Println("Using in-memory stores (DEV_MODE=true)")
	} else {
		dynamoClient := dynamodb.NewFromConfig(cfg)
		objects = store.NewDynamoStore(dynamoClient, objectsTable)
		locks = lock.NewDynamoStore(dynamoClient, objectsTable)
	}

	return &App{
		objectHandler:    handler.NewObjectHandler(objects, jwtSecret),
		lockHandler:      handler.NewLockHandler(locks, jwtSecret),
		apiGatewaySecret: apiGatewaySecret,
	}
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := req.Path
	method := req.HTTPMethod

	fmt.Printf("Request: %s %s\n", method, path)

	// CORS Preflight
	if method == "OPTIONS" {
		return corsResponse(events.APIGatewayProxyResponse{StatusCode: 204}), nil
	}

	// Security: Verify Request Origin (CloudFront only)
	// Skip check for OPTIONS (preflight) and if DEV_MODE is true
	if os.Getenv("DEV_MODE") != "true" {
		if req.Headers["X-Origin-Verify"] != app.apiGatewaySecret && req.Headers["x-origin-verify"] != app.apiGatewaySecret {
			fmt.Printf("Security Block: Missing or invalid X-Origin-Verify header\n")
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusForbidden,
				Body:       "Forbidden: Access denied",
			}, nil
		}
	}

	// Strip /api prefix if present (for CloudFront proxying)
	if strings.HasPrefix(path, "/api") {
		path = strings.TrimPrefix(path, "/api")
	}

	if req.PathParameters == nil {
		req.PathParameters = make(map[string]string)
	}

	// /objects
	if path == "/objects" {
		if method == "GET" {
			return corsResponse(must(app.objectHandler.ListObjects(ctx, req))), nil
		}
		if method == "POST" {
			return corsResponse(must(app.objectHandler.CreateObject(ctx, req))), nil
		}
	}

	// /objects/{id}[/lock|/heartbeat]
	if strings.HasPrefix(path, "/objects/") {
		parts := strings.Split(strings.TrimPrefix(path, "/objects/"), "/")

		if len(parts) == 1 && parts[0] != "" {
			req.PathParameters["id"] = parts[0]
			if method == "PUT" {
				return corsResponse(must(app.objectHandler.UpdateObject(ctx, req))), nil
			}
			if method == "DELETE" {
				return corsResponse(must(app.objectHandler.DeleteObject(ctx, req))), nil
			}
		}

		if len(parts) == 2 {
			req.PathParameters["objectId"] = parts[0]
			action := parts[1]

			if action == "lock" {
				if method == "POST" {
					return corsResponse(must(app.lockHandler.AcquireLock(ctx, req))), nil
				}
				if method == "DELETE" {
					return corsResponse(must(app.lockHandler.ReleaseLock(ctx, req))), nil
				}
			}
			if action == "heartbeat" && method == "POST" {
				return corsResponse(must(app.lockHandler.Heartbeat(ctx, req))), nil
			}
		}
	}

	return corsResponse(events.APIGatewayProxyResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf("Not Found: %s %s", method, path),
	}), nil
}

// corsResponse adds CORS headers to an API Gateway response.
func corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = os.Getenv("FRONTEND_URL")
	if resp.Headers["Access-Control-Allow-Origin"] == "" {
		resp.Headers["Access-Control-Allow-Origin"] = "http://localhost:3000"
	}
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,PUT,DELETE,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"
	return resp
}

// must unwraps a handler response, ignoring the error.
func must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		fmt.Printf("Handler error: %v\n", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	return resp
}
