// Package wire implements the binary encoding of pre-key bundles.
//
// The encoding is the protobuf wire format of this message:
//
//	message PreKeyBundle {
//	  uint32 registration_id          = 1;
//	  uint32 device_id                = 2;
//	  uint32 one_time_pre_key_id      = 3; // absent when none available
//	  bytes  one_time_pre_key_public  = 4; // absent when none available
//	  uint32 signed_pre_key_id        = 5;
//	  bytes  signed_pre_key_public    = 6;
//	  bytes  signed_pre_key_signature = 7;
//	  bytes  identity_key             = 8;
//	}
//
// It is written with protowire directly so no generated code is needed.
package wire
