// Package gae provides Google Cloud Datastore implementations of the
// loginhub storage interfaces.
//
// Entities are namespaced so multiple deployments can share a project.
// Lookups by id use name keys; email lookups run an indexed query.
//
// Usage:
//
//	client, err := datastore.NewClient(ctx, "my-project")
//	if err != nil {
//		log.Fatal(err)
//	}
//	users := gae.NewUserStore(client, "prod")
//	docs := gae.NewDocumentStore(client, "prod")
package gae
