package handlers

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// DocsPrefix is where the Swagger UI is mounted.
const DocsPrefix = "/api-docs"

// RegisterSwagger mounts the Swagger UI. The generated document is linked in
// by the binary that imports internal/docs/swagger.
func RegisterSwagger(r gin.IRoutes) {
	r.GET(DocsPrefix+"/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
