package domain

// UploadFile is one piece of raw training data as received from a client.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type Upload struct {
	Files []UploadFile
}

func (u Upload) Size() int {
	n := 0
	for _, f := range u.Files {
		n += len(f.Data)
	}
	return n
}
