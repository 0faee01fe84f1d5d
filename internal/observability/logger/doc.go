// Package logger provides a singleton Zap logger with context-based scoping.
//
// Inicialización (una vez en main):
//
//	logger.Init(logger.Config{Env: "prod", Level: "info"})
//	defer logger.Sync()
//
// En controllers/services (con contexto):
//
//	log := logger.From(ctx)
//	log.Info("session issued", logger.UserID(userID))
//
// Sin contexto (fallback al singleton):
//
//	logger.L().Info("server started")
package logger
