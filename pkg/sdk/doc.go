// Package sdk provides a Go client for the carlens automotive image
// search API.
//
//	client := sdk.New("http://localhost:8080", sdk.WithAPIKey("secret"))
//
//	img, _ := client.Upload(ctx, "car.jpg", data, []string{"red", "suv"})
//
//	resp, _ := client.Search(ctx, sdk.SearchRequest{Query: "fast red bmw"})
//	for _, r := range resp.Results {
//	    fmt.Println(r.Filename, r.Similarity)
//	}
//
// Bulk imports run asynchronously:
//
//	jobID, _ := client.StartImport(ctx, csvData)
//	job, _ := client.WaitJob(ctx, jobID, time.Second)
//	fmt.Println(job.State, job.Succeeded, "of", job.Total)
package sdk
