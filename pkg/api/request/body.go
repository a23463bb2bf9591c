package request

// Body is the raw request body. It's kept as bytes because webhook
// signatures are computed over the exact payload.
type Body []byte
