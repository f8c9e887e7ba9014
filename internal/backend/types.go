package backend

import "io"

// UploadRequest is the multipart payload sent to /upload_pdf/.
type UploadRequest struct {
	Filename    string
	Content     io.Reader
	CompanyName string
	ProductCode string
}

// DBRecord is the metadata row the backend stores for an uploaded document.
type DBRecord struct {
	ID          string `json:"_id"`
	CompanyName string `json:"company_name"`
	ProductCode string `json:"product_code,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	URI         string `json:"uri,omitempty"`
	Filename    string `json:"filename,omitempty"`
}

// Code returns the product code, falling back to the product name.
func (r DBRecord) Code() string {
	if r.ProductCode != "" {
		return r.ProductCode
	}
	return r.ProductName
}

// UploadResult is the success body of /upload_pdf/.
type UploadResult struct {
	Message  string    `json:"message"`
	Files    []string  `json:"files,omitempty"`
	DBRecord *DBRecord `json:"db_record,omitempty"`
}

// Model is one uploaded document listed under a company.
type Model struct {
	ID          string `json:"_id"`
	CompanyName string `json:"company_name,omitempty"`
	ProductCode string `json:"product_code,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	Filename    string `json:"filename,omitempty"`
	URI         string `json:"uri,omitempty"`
}

// QueryRequest is the JSON body of /query/. Nil pointers encode as null.
type QueryRequest struct {
	Query       string  `json:"query"`
	CompanyName *string `json:"company_name"`
	ProductCode *string `json:"product_code"`
}

// QueryResult is the success body of /query/.
type QueryResult struct {
	Response string `json:"response"`
}

// queryResponse is the raw /query/ body; a missing or null response is
// not an answer.
type queryResponse struct {
	Response *string `json:"response"`
}

// FilesResult lists the files the backend currently holds on disk.
type FilesResult struct {
	Message string   `json:"message,omitempty"`
	Files   []string `json:"files"`
}

type companiesResponse struct {
	Companies []string `json:"companies"`
}

type modelsResponse struct {
	Models []Model `json:"models"`
}

type currentCompanyResponse struct {
	CompanyName *string `json:"company_name"`
}

type healthResponse struct {
	Status string `json:"status"`
}
