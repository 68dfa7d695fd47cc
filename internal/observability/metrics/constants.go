package metrics

// namespace prefixes every metric exported by corrbuf.
const namespace = "corrbuf"
