// Package services defines the shared error taxonomy and context carriers
// used by the capability providers under services/ and by the pipeline that
// drives them.
package services
