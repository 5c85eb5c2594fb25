package s3

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/relloyd/batchetl/constants"
	"github.com/relloyd/batchetl/rdbms/shared"
)

type AwsS3Bucket struct {
	Name   string `errorTxt:"bucket name" mandatory:"yes"`
	Prefix string `errorTxt:"bucket prefix"`
	Region string `errorTxt:"bucket region" mandatory:"yes"`
}

// ConnectionDetails returns the bucket as a logical connection, e.g. for printing config.
func (d AwsS3Bucket) ConnectionDetails(logicalName string) shared.ConnectionDetails {
	return shared.ConnectionDetails{
		Type:        constants.ConnectionTypeS3,
		LogicalName: logicalName,
		Data: map[string]string{
			"name":   d.Name,
			"prefix": d.Prefix,
			"region": d.Region,
		},
	}
}

// ParseDSN expects bucketPrefix to be of the form [s3://]<bucket>[/<prefix>]
// It returns an AwsS3Bucket populated with the components of bucketPrefix and the supplied region.
func ParseDSN(bucketPrefix string, region string) (retval AwsS3Bucket, err error) {
	expectedScheme := "s3"
	if !strings.Contains(bucketPrefix, "://") { // if there's no scheme the bucket would be parsed as a path...
		bucketPrefix = expectedScheme + "://" + bucketPrefix
	}
	s3url, err := url.Parse(bucketPrefix)
	if err != nil {
		return retval, fmt.Errorf("error parsing S3 URL: %v", err)
	}
	if s3url.Scheme != expectedScheme {
		return retval, fmt.Errorf("expected S3 URL scheme %q but got %q", expectedScheme, s3url.Scheme)
	}
	if region == "" {
		return retval, fmt.Errorf("value expected for bucket region")
	}
	retval.Name = s3url.Host
	if retval.Name == "" {
		return retval, fmt.Errorf("DSN failed to parse bucket name")
	}
	retval.Prefix = strings.Trim(s3url.Path, "/")
	retval.Region = region
	return
}
