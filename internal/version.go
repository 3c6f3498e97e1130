package multitag

const Version = "0.4.0"

// Vendor is the Vorbis vendor string written to new comment headers.
const Vendor = "multitag " + Version
