package hooks_test

import "context"

type fakeModelClient struct {
	response string
	err      error
}

func (f fakeModelClient) Complete(ctx context.Context, model, systemInstructions, userText string, jsonSchema []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}
