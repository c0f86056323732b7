package routes

// Routes package cung cấp tất cả routing functions cho PSGC Address Resolver
//
// Cấu trúc:
// - api.go: API routes (/v1/*), health, metrics
// - web.go: Web routes (/, /docs)
//
// Sử dụng:
// routes.SetupAllRoutes(router, routes.Controllers{...}, routes.Options{...})
