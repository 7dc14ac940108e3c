package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DynamoDBStore is an implementation of Store backed by a DynamoDB table whose
// partition key is a binary attribute named "k". Values go in attribute "va".
type DynamoDBStore struct {
	profile string
	region  string
	table   string

	// Do throttling on our side based on configured RCUs/WCUs so the
	// client doesn't have to retry.
	getLimiter *rate.Limiter
	putLimiter *rate.Limiter

	ddb *dynamodb.DynamoDB
}

func NewDynamoDBStore(profile, region, table string) (*DynamoDBStore, error) {
	s := &DynamoDBStore{
		profile: profile,
		region:  region,
		table:   table,
	}
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(s.region),
		Credentials: credentials.NewSharedCredentials("", s.profile),
	})
	if err != nil {
		return nil, err
	}
	s.ddb = dynamodb.New(sess)
	if err := s.configureLimiters(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DynamoDBStore) configureLimiters() error {
	result, err := s.ddb.DescribeTable(&dynamodb.DescribeTableInput{
		TableName: &s.table,
	})
	if err != nil {
		return err
	}
	s.getLimiter = rate.NewLimiter(rate.Inf, 1)
	s.putLimiter = rate.NewLimiter(rate.Inf, 1)
	// On-demand tables report zero provisioned capacity. Leave those
	// unthrottled.
	pt := result.Table.ProvisionedThroughput
	if pt == nil {
		return nil
	}
	// Assume our items, that we get/put individually, are <= 1 kB,
	// so that RCUs/WCUs translate to get/put requests per second.
	if rcus := aws.Int64Value(pt.ReadCapacityUnits); rcus > 0 {
		s.getLimiter = rate.NewLimiter(rate.Every(time.Duration(1_000_000/rcus)*time.Microsecond), 1)
	}
	if wcus := aws.Int64Value(pt.WriteCapacityUnits); wcus > 0 {
		s.putLimiter = rate.NewLimiter(rate.Every(time.Duration(1_000_000/wcus)*time.Microsecond), 1)
	}
	log.WithFields(log.Fields{
		"table": s.table,
		"rcus":  aws.Int64Value(pt.ReadCapacityUnits),
		"wcus":  aws.Int64Value(pt.WriteCapacityUnits),
	}).Debug("Configured DynamoDB limiters")
	return nil
}

func (s *DynamoDBStore) Put(key []byte, value []byte) (err error) {
	var input dynamodb.PutItemInput
	input.TableName = &s.table
	input.Item = map[string]*dynamodb.AttributeValue{
		"k":  ddbBinary(key),
		"va": ddbBinary(value),
	}
	time.Sleep(s.putLimiter.Reserve().Delay())
	_, err = s.ddb.PutItem(&input)
	return err
}

func (s *DynamoDBStore) Get(key []byte) (value []byte, err error) {
	var input dynamodb.GetItemInput
	input.TableName = &s.table
	input.Key = map[string]*dynamodb.AttributeValue{
		"k": ddbBinary(key),
	}
	time.Sleep(s.getLimiter.Reserve().Delay())
	output, err := s.ddb.GetItem(&input)
	if err != nil {
		// A missing table is a provisioning problem, not a missing key.
		return nil, err
	}
	if output.Item == nil {
		return nil, fmt.Errorf("%.10x: %w", key, ErrNotFound)
	}
	return itemValue(output.Item, key)
}

// ErrMalformedItem is returned for a DynamoDB item that has the key but no
// value attribute, e.g. one written by some other program.
var ErrMalformedItem = errors.New("item has no value attribute")

func itemValue(item map[string]*dynamodb.AttributeValue, key []byte) ([]byte, error) {
	v, ok := item["va"]
	if !ok || v == nil {
		return nil, fmt.Errorf("%.10x: %w", key, ErrMalformedItem)
	}
	if v.B == nil {
		return []byte{}, nil
	}
	return v.B, nil
}

func (s *DynamoDBStore) Delete(key []byte) (err error) {
	var input dynamodb.DeleteItemInput
	input.TableName = &s.table
	input.Key = map[string]*dynamodb.AttributeValue{
		"k": ddbBinary(key),
	}
	time.Sleep(s.putLimiter.Reserve().Delay())
	_, err = s.ddb.DeleteItem(&input)
	return err
}

func ddbBinary(b []byte) *dynamodb.AttributeValue {
	return &dynamodb.AttributeValue{
		B: dup(b),
	}
}
