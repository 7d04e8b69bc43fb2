package api

// @title Telebit Explorer API
// @version 1.0
// @description This is the API documentation for the Telebit Explorer application.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @tag.name Block
// @tag.description Block related endpoints

// @tag.name Transaction
// @tag.description Transaction related endpoints

// @tag.name Address
// @tag.description Address related endpoints

// @tag.name Token
// @tag.description Token related endpoints

// @tag.name Stats
// @tag.description Network statistic endpoints
