// Package repository define las interfaces de acceso a datos del bridge.
//
// Estas interfaces representan contratos de negocio, independientes del
// almacenamiento subyacente (PostgreSQL, memoria). Las implementaciones
// concretas viven en internal/store/.
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Errores de dominio están en errors.go
//   - Los tokens nunca se persisten en claro; los repos reciben hashes
package repository
