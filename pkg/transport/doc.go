// Package transport performs the outbound HTTP exchanges of provider adapters.
//
// It contains:
//   - [NewHTTPClient], a resty client with connect timeout and debug logging
//   - [Do], a synchronous JSON round trip
//   - [Stream], a streaming POST that reassembles delimited events and aborts
//     when the body stays silent for longer than the idle timeout
//   - [Reassembler], the byte-chunk to event splitter used by [Stream]
package transport
