package security

import "time"

// XSRFConfig configura la emisión y validación del token anti-forgery.
// La política de cookie (nombres, domain, samesite) vive en el router y
// los helpers; acá solo lo que el servicio necesita para el store.
type XSRFConfig struct {
	TTL time.Duration // vida de la vinculación; acompaña a la sesión
}
