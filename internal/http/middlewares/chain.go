package middlewares

import "net/http"

// Middleware envuelve un http.Handler con comportamiento transversal
// (request-id, logging, gate, rate limit). Se componen con Chain.
type Middleware func(http.Handler) http.Handler

// Chain envuelve h de afuera hacia adentro: el primero de la lista
// intercepta el request antes que el resto y es el último en ver la
// respuesta. Chain(h, A, B) equivale a A(B(h)).
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	wrapped := h
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}
