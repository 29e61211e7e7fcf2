// Package kafka publishes audit verdicts and consumes validation requests
// over segmentio/kafka-go.
//
//   - Producer: a kafka-go Writer with TLS/SASL, retries and AppError translation
//   - Publisher: a typed provider.Sink that sends JSON to one topic
//   - Consumer: a group reader driven through a pipeline, committing after each message
//   - ValidationHandler: turns {"video_id": "..."} requests into audits
//   - Component: lifecycle (Start/Stop/Health) for the component registry
//
// Configuration:
//
//	kafka:
//	  enabled: true
//	  brokers: ["localhost:9092"]
//	  group_id: "transcriptcheck"
//	  verdict_topic: "transcriptcheck.verdicts"
//	  request_topic: "transcriptcheck.requests"
package kafka
