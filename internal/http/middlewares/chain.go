// Package middlewares contiene los decoradores http.Handler del
// servicio: request id, logging estructurado, recover, headers de
// seguridad y métricas.
package middlewares

import "net/http"

// Middleware es un decorador de http.Handler. La firma es compatible
// con chi, así que el router los encadena vía Use/With.
type Middleware func(http.Handler) http.Handler
