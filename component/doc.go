// Package component defines the lifecycle contract shared by long-running
// flowkit parts such as pipelines and the HTTP front-end.
//
// Components are started in registration order and stopped in reverse,
// so a pipeline registered before the server that feeds it drains only
// after the server has stopped accepting input.
package component
