package docs

import "github.com/swaggo/swag"

// @title           AI Task Manager API
// @version         1.0
// @description     API for managing dated tasks with AI-generated breakdowns

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token

// @tag.name Users
// @tag.description Registration and login

// @tag.name Tasks
// @tag.description Task dashboard operations

// Register swagger info
func SwaggerInfo() *swag.Spec {
	spec, _ := swag.GetSwagger(swag.Name).(*swag.Spec)
	return spec
}
