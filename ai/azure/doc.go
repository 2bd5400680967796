// Package azure provides AI service implementations backed by Azure OpenAI
// deployments through the go-openai client.
//
// Config.EmbeddingModel and Config.CompletionModel name Azure deployments, not
// model families. Requests are routed to
// {AzureEndpoint}/openai/deployments/{deployment}/... with the configured
// api-version.
package azure
