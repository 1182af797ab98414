package constants

// Discord webhook transport ceilings. The packer defaults in common.Config
// must stay at or below these; they are the hard limits of the transport,
// not tuning knobs.
const (
	// DiscordMaxPayloadBytes is the documented total request size limit.
	DiscordMaxPayloadBytes = 8 << 20

	// DiscordMaxAttachments is the attachment count limit per message.
	DiscordMaxAttachments = 10

	// DiscordMaxEmbeds is the embed (caption) count limit per message.
	DiscordMaxEmbeds = 10
)

// CacheQueryChunkSize bounds the number of bound parameters per SQL query.
// SQLite's default parameter limit is 999; 900 leaves headroom for the
// non-key parameters in the same statement.
const CacheQueryChunkSize = 900
