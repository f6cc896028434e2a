// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"errors"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
)

func TestNativeRelocator_Relocate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := NewMockmoveClient(ctrl)
	r := nativeRelocator{conn}

	seqset := &imap.SeqSet{}
	seqset.AddNum(u32a(5, 6)...)
	conn.EXPECT().
		UidMove(gomock.Eq(seqset), gomock.Eq("Archive")).
		Return(nil)

	assert.NoError(t, r.relocate(u32a(5, 6), "Archive"))

	notReadyReason, err := r.relocateReady()
	assert.NoError(t, notReadyReason)
	assert.NoError(t, err)
}

func TestNativeRelocator_RelocateFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := NewMockmoveClient(ctrl)
	r := nativeRelocator{conn}

	conn.EXPECT().
		UidMove(gomock.Any(), gomock.Any()).
		Return(errors.New("NO [TRYCREATE] no such mailbox"))

	assert.EqualError(t, r.relocate(u32a(5), "Missing"), "could not move mails: NO [TRYCREATE] no such mailbox")
}

func TestCopyRelocator_Relocate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := NewMockcopyClient(ctrl)
	r := copyRelocator{conn}

	seqset := &imap.SeqSet{}
	seqset.AddNum(u32a(5, 6)...)
	gomock.InOrder(
		conn.EXPECT().removeReady().Return(nil, nil),
		conn.EXPECT().UidCopy(gomock.Eq(seqset), gomock.Eq("Archive")).Return(nil),
		conn.EXPECT().remove(gomock.Eq(u32a(5, 6))).Return(nil),
	)

	assert.NoError(t, r.relocate(u32a(5, 6), "Archive"))
}

func TestCopyRelocator_RelocateNotReady(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := NewMockcopyClient(ctrl)
	r := copyRelocator{conn}

	conn.EXPECT().removeReady().Return(ErrDeletedFlagPresent, nil)

	err := r.relocate(u32a(5), "Archive")
	assert.EqualError(t, err, "folder is not ready for delete, cannot move (copy&delete): folder has previous items with delete flag set")
}

func TestCopyRelocator_RelocateCopyFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := NewMockcopyClient(ctrl)
	r := copyRelocator{conn}

	conn.EXPECT().removeReady().Return(nil, nil)
	conn.EXPECT().UidCopy(gomock.Any(), gomock.Any()).Return(errors.New("quota exceeded"))

	assert.EqualError(t, r.relocate(u32a(5), "Archive"), "could not copy mails: quota exceeded")
}
