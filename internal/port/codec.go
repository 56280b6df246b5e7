package port

// BodyCodec converts a template body between its document form and its serialized text.
type BodyCodec interface {
	Encode(doc any) (string, error)
	// Decode falls back to an empty document for missing or corrupt input.
	Decode(text string) any
}

// BodyCompressor is applied by the store to the serialized body.
type BodyCompressor interface {
	Compress(text string) ([]byte, error)
	Decompress(data []byte) (string, error)
}
