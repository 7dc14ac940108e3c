package storage

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	log "github.com/sirupsen/logrus"
)

// S3 is an implementation of Store backed by AWS S3.
type S3 struct {
	profile string
	region  string
	bucket  string

	mu     sync.Mutex
	client *s3.S3
}

func NewS3(profile, region, bucket string) *S3 {
	return &S3{
		profile: profile,
		region:  region,
		bucket:  bucket,
	}
}

func (s *S3) Get(key []byte) (value []byte, err error) {
	client, err := s.ensureClient()
	if err != nil {
		return nil, err
	}
	hexKey := fmt.Sprintf("%x", key)
	output, err := client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(hexKey),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%q: %w", key, ErrNotFound)
		}
		return nil, err
	}
	defer func() {
		if err := output.Body.Close(); err != nil {
			log.WithFields(log.Fields{
				"op":  "get",
				"key": hexKey,
				"err": err,
			}).Warning("Could not close response body")
		}
	}()
	value, err = io.ReadAll(output.Body)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *S3) Put(key, value []byte) (err error) {
	client, err := s.ensureClient()
	if err == nil {
		hexKey := fmt.Sprintf("%x", key)
		_, err = client.PutObject(&s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(hexKey),
			Body:   bytes.NewReader(dup(value)),
		})
	}
	return
}

// Delete relies on S3 treating deletes of missing objects as successful.
func (s *S3) Delete(key []byte) (err error) {
	client, err := s.ensureClient()
	if err == nil {
		hexKey := fmt.Sprintf("%x", key)
		_, err = client.DeleteObject(&s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(hexKey),
		})
	}
	return
}

func (s *S3) ensureClient() (*s3.S3, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(s.region),
		Credentials: credentials.NewSharedCredentials("", s.profile),
	})
	if err != nil {
		return nil, err
	}
	s.client = s3.New(sess)
	return s.client, nil
}

func isS3NotFound(err error) bool {
	if rfErr, ok := err.(awserr.RequestFailure); ok {
		if rfErr.StatusCode() == http.StatusNotFound {
			return true
		}
	}
	if e, ok := err.(awserr.Error); ok {
		return e.Code() == s3.ErrCodeNoSuchKey
	}
	return false
}
